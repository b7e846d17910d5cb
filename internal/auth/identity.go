package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// 身份提取
// 认证与授权由上游网关负责(工程范围外),引擎只需要一个可归因的
// 调用者身份写入审计与迁移日志:优先取 Bearer Token 的声明,
// 退化到 X-Operator 头

// IdentityMiddleware 调用者身份中间件
// 将解析出的身份放入 gin context 与请求 context(键 user_id)
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		operator := OperatorFromRequest(c)
		if operator != "" {
			c.Set("user_id", operator)
			ctx := context.WithValue(c.Request.Context(), "user_id", operator) //nolint:staticcheck
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// OperatorFromRequest 从请求提取调用者身份
func OperatorFromRequest(c *gin.Context) string {
	if operator := subjectFromBearer(c.GetHeader("Authorization")); operator != "" {
		return operator
	}
	return c.GetHeader("X-Operator")
}

// subjectFromBearer 从 Bearer Token 中提取主体
// Token 已由上游验证,这里只解码声明,不做签名校验
func subjectFromBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(parts[1], claims); err != nil {
		return ""
	}

	if username, ok := claims["preferred_username"].(string); ok && username != "" {
		return username
	}
	if sub, ok := claims["sub"].(string); ok {
		return sub
	}
	return ""
}
