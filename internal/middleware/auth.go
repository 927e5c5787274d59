package middleware

import (
	"net/http"

	"github.com/ashwinyue/agenteva/internal/apperr"
	"github.com/ashwinyue/agenteva/internal/model"
	"github.com/ashwinyue/agenteva/internal/service/tenant"
	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	ContextTenant     = "tenant"
	ContextTenantSlug = "tenant_slug"
)

// ResolveTenant 从路径参数解析租户并挂到上下文
// 未知或停用的租户直接 404，不暴露更多信息
func ResolveTenant(tenants *tenant.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("tenant")
		t, err := tenants.GetBySlug(c.Request.Context(), slug)
		if err != nil {
			if apperr.Is(err, apperr.KindConfiguration) || apperr.Is(err, apperr.KindValidation) {
				c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "tenant not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "internal server error"})
			}
			c.Abort()
			return
		}
		c.Set(ContextTenant, t)
		c.Set(ContextTenantSlug, slug)
		c.Next()
	}
}

// RequireAPIKey 管理端点要求 X-API-Key 与租户匹配
func RequireAPIKey(tenants *tenant.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := TenantFrom(c)
		if t == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "tenant not resolved"})
			c.Abort()
			return
		}
		key := c.GetHeader("X-API-Key")
		if key == "" || !tenants.VerifyAPIKey(t, key) {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "invalid api key"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// TenantFrom 取上下文中的租户
func TenantFrom(c *gin.Context) *model.Tenant {
	v, ok := c.Get(ContextTenant)
	if !ok {
		return nil
	}
	t, _ := v.(*model.Tenant)
	return t
}
