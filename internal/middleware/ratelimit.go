package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ashwinyue/agenteva/internal/service/ratelimit"
	"github.com/gin-gonic/gin"
)

// 不限流的路径
var rateLimitExempt = map[string]bool{
	"/":       true,
	"/health": true,
}

// RateLimitMiddleware 滑动窗口限流
// 限流键优先级：路径里的租户 > API key 前缀 > 客户端 IP
func RateLimitMiddleware(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if rateLimitExempt[path] {
			c.Next()
			return
		}

		key := rateLimitKey(c)
		allowed, info, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// 限流器故障不拦请求
			log.Printf("rate limiter error for %s: %v", key, err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", info.Reset))

		if !allowed {
			retryAfter := info.Reset - time.Now().Unix()
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code": 429,
				"msg":  "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func rateLimitKey(c *gin.Context) string {
	// 路径形如 /api/{tenant}/...
	parts := strings.Split(c.Request.URL.Path, "/")
	if len(parts) >= 3 && parts[1] == "api" && parts[2] != "" {
		return "tenant_" + parts[2]
	}
	if key := c.GetHeader("X-API-Key"); key != "" {
		if len(key) > 16 {
			key = key[:16]
		}
		return "api_key_" + key
	}
	return "ip_" + c.ClientIP()
}
