package handler

import (
	"github.com/ashwinyue/agenteva/internal/service"
	"github.com/gin-gonic/gin"
)

// SystemHandler 系统信息处理器
type SystemHandler struct {
	svc *service.Services
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(svc *service.Services) *SystemHandler {
	return &SystemHandler{svc: svc}
}

// Health 健康检查
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	Success(c, gin.H{
		"status":  "ok",
		"name":    h.svc.Config.App.Name,
		"version": h.svc.Config.App.Version,
	})
}

// Root 根路径
// GET /
func (h *SystemHandler) Root(c *gin.Context) {
	Success(c, gin.H{
		"name":    h.svc.Config.App.Name,
		"message": "multi-tenant conversational support backend",
	})
}
