package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDMiddleware 请求 ID 中间件
// 复用客户端传入的 X-Request-ID,否则生成新的,并回写响应头
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		// 写入请求 context,供审计日志使用
		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, "request_id", requestID)             //nolint:staticcheck
		ctx = context.WithValue(ctx, "ip", c.ClientIP())                  //nolint:staticcheck
		ctx = context.WithValue(ctx, "user_agent", c.Request.UserAgent()) //nolint:staticcheck
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
