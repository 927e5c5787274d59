package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware 日志中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Printf("[%s] %s | tenant: %s | Status: %d | Latency: %v",
			c.Request.Method,
			path,
			c.Param("tenant"),
			c.Writer.Status(),
			time.Since(start),
		)
	}
}
