// Package router 路由装配
package router

import (
	"github.com/ashwinyue/agenteva/internal/handler"
	"github.com/ashwinyue/agenteva/internal/middleware"
	"github.com/ashwinyue/agenteva/internal/service"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, svc *service.Services) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.RateLimitMiddleware(svc.RateLimiter))

	// 系统
	r.GET("/", h.System.Root)
	r.GET("/health", h.System.Health)

	// 租户 API，路径里的 slug 先解析成租户
	api := r.Group("/api/:tenant", middleware.ResolveTenant(svc.Tenant))
	{
		// 对话（挂件公开调用）
		api.POST("/chat", h.Chat.Chat)
		api.GET("/widget/config", h.Tenant.GetWidgetConfig)

		// 管理端点要求租户 API key
		admin := api.Group("", middleware.RequireAPIKey(svc.Tenant))
		{
			admin.GET("/config", h.Tenant.GetConfig)
			admin.PUT("/config/ai", h.Tenant.UpdateAIConfig)
			admin.POST("/apikey/rotate", h.Tenant.RotateAPIKey)

			admin.GET("/analytics", h.Tenant.GetAnalytics)
			admin.POST("/analytics/compute", h.Tenant.ComputeAnalytics)

			admin.GET("/conversations/:id", h.Chat.GetConversation)
			admin.GET("/conversations/:id/messages", h.Chat.History)
			admin.PUT("/conversations/:id/status", h.Chat.UpdateStatus)

			admin.POST("/knowledge", h.Knowledge.Upload)
			admin.GET("/knowledge", h.Knowledge.List)
			admin.GET("/knowledge/:id", h.Knowledge.Get)
			admin.PUT("/knowledge/:id", h.Knowledge.Update)
			admin.DELETE("/knowledge/:id", h.Knowledge.Delete)
			admin.POST("/knowledge/search", h.Knowledge.Search)
		}
	}

	// 入站渠道回调
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/twilio/sms", h.Webhook.TwilioSMS)
		webhooks.POST("/twilio/voice", h.Webhook.TwilioVoice)
		webhooks.POST("/vapi/:tenant", h.Webhook.Vapi)
		webhooks.POST("/sendgrid/inbound", h.Webhook.SendGridInbound)
	}

	return r
}
