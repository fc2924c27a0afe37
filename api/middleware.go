package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader 是请求ID使用的HTTP头
const RequestIDHeader = "X-Request-ID"

// RequestID 为每个请求附加一个唯一ID，便于日志关联。
// 调用方已携带请求ID时原样透传。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
