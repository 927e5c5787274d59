package handler

import (
	"github.com/ashwinyue/agenteva/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Chat      *ChatHandler
	Tenant    *TenantHandler
	Knowledge *KnowledgeHandler
	Webhook   *WebhookHandler
	System    *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Chat:      NewChatHandler(svc),
		Tenant:    NewTenantHandler(svc),
		Knowledge: NewKnowledgeHandler(svc),
		Webhook:   NewWebhookHandler(svc),
		System:    NewSystemHandler(svc),
	}
}
