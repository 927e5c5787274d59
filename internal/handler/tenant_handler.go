package handler

import (
	"strconv"
	"time"

	"github.com/ashwinyue/agenteva/internal/middleware"
	"github.com/ashwinyue/agenteva/internal/model"
	"github.com/ashwinyue/agenteva/internal/service"
	"github.com/gin-gonic/gin"
)

// TenantHandler 租户配置、挂件与指标处理器
type TenantHandler struct {
	svc *service.Services
}

// NewTenantHandler 创建租户处理器
func NewTenantHandler(svc *service.Services) *TenantHandler {
	return &TenantHandler{svc: svc}
}

// GetConfig 取租户配置
// GET /api/:tenant/config
func (h *TenantHandler) GetConfig(c *gin.Context) {
	t := middleware.TenantFrom(c)
	if t == nil {
		Unauthorized(c, "tenant not resolved")
		return
	}

	Success(c, gin.H{
		"slug":          t.Slug,
		"name":          t.Name,
		"branding":      t.Branding,
		"ai_config":     t.AIConfig,
		"business_info": t.BusinessInfo,
	})
}

// UpdateAIConfig 更新租户 AI 配置
// PUT /api/:tenant/config/ai
func (h *TenantHandler) UpdateAIConfig(c *gin.Context) {
	t := middleware.TenantFrom(c)
	if t == nil {
		Unauthorized(c, "tenant not resolved")
		return
	}

	var cfg model.TenantAIConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		BadRequest(c, "invalid ai config payload")
		return
	}
	if err := h.svc.Tenant.UpdateAIConfig(c.Request.Context(), t, &cfg); err != nil {
		Error(c, err)
		return
	}
	Success(c, t.AIConfig)
}

// GetWidgetConfig 挂件脚本拉取品牌配置
// GET /api/:tenant/widget/config
func (h *TenantHandler) GetWidgetConfig(c *gin.Context) {
	t := middleware.TenantFrom(c)
	if t == nil {
		Unauthorized(c, "tenant not resolved")
		return
	}

	branding := gin.H{
		"primary_color":   "#667eea",
		"company_name":    t.Name,
		"welcome_message": "Hi! How can we help you today?",
		"logo_url":        "",
	}
	if b := t.Branding; b != nil {
		if b.PrimaryColor != "" {
			branding["primary_color"] = b.PrimaryColor
		}
		if b.CompanyName != "" {
			branding["company_name"] = b.CompanyName
		}
		if b.LogoURL != "" {
			branding["logo_url"] = b.LogoURL
		}
	}

	Success(c, gin.H{
		"branding": branding,
		"features": gin.H{"web": gin.H{"enabled": true}},
	})
}

// RotateAPIKey 重新生成 API key，明文只在响应里出现一次
// POST /api/:tenant/apikey/rotate
func (h *TenantHandler) RotateAPIKey(c *gin.Context) {
	t := middleware.TenantFrom(c)
	if t == nil {
		Unauthorized(c, "tenant not resolved")
		return
	}

	key, err := h.svc.Tenant.GenerateAPIKey(c.Request.Context(), t)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"api_key": key})
}

// GetAnalytics 取日指标
// GET /api/:tenant/analytics?days=30
func (h *TenantHandler) GetAnalytics(c *gin.Context) {
	t := middleware.TenantFrom(c)
	if t == nil {
		Unauthorized(c, "tenant not resolved")
		return
	}

	days := 30
	if raw := c.Query("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			days = n
		}
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)
	rows, err := h.svc.Analytics.GetRange(c.Request.Context(), t.ID, from, to)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{
		"days":    days,
		"metrics": rows,
	})
}

// ComputeAnalytics 手动触发某天的聚合
// POST /api/:tenant/analytics/compute?date=2026-08-29
func (h *TenantHandler) ComputeAnalytics(c *gin.Context) {
	t := middleware.TenantFrom(c)
	if t == nil {
		Unauthorized(c, "tenant not resolved")
		return
	}

	day := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			BadRequest(c, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	row, err := h.svc.Analytics.ComputeDaily(c.Request.Context(), t.ID, day)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, row)
}
