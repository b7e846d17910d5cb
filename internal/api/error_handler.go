package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorHandlerMiddleware 兜底错误处理中间件
// 挂到 gin 错误链上而未被处理器写出的错误在此统一落地,
// 已写出响应的请求只记录日志
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last()
		GetLogger().WithField("path", c.Request.URL.Path).
			WithError(err.Err).
			Error("unhandled request error")

		if !c.Writer.Written() {
			Error(c, http.StatusInternalServerError, "internal server error", err.Error())
		}
	}
}
