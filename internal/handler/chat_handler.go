package handler

import (
	"github.com/ashwinyue/agenteva/internal/middleware"
	"github.com/ashwinyue/agenteva/internal/model"
	"github.com/ashwinyue/agenteva/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatHandler 对话处理器
type ChatHandler struct {
	svc *service.Services
}

// NewChatHandler 创建对话处理器
func NewChatHandler(svc *service.Services) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// ChatRequest 对话请求
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
	Channel   string `json:"channel"`
}

// ChatResponse 对话响应
type ChatResponse struct {
	Message          string   `json:"message"`
	SessionID        string   `json:"session_id"`
	ConversationID   string   `json:"conversation_id"`
	Confidence       float64  `json:"confidence"`
	SuggestedActions []string `json:"suggested_actions"`
}

// Chat 处理用户消息
// POST /api/:tenant/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "message is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	channel := req.Channel
	if channel == "" {
		channel = "web"
	}

	slug := c.Param("tenant")
	result, err := h.svc.Orchestrator.ProcessMessage(c.Request.Context(), slug, req.Message, sessionID, channel)
	if err != nil {
		Error(c, err)
		return
	}

	resp := ChatResponse{
		Message:          result.Response,
		SessionID:        result.SessionID,
		ConversationID:   result.ConversationID,
		Confidence:       result.Confidence,
		SuggestedActions: []string{},
	}
	if result.Escalate {
		resp.SuggestedActions = []string{"Talk to human agent"}
	}
	Success(c, resp)
}

// History 取会话历史
// GET /api/:tenant/conversations/:id/messages
func (h *ChatHandler) History(c *gin.Context) {
	t := middleware.TenantFrom(c)
	if t == nil {
		Unauthorized(c, "tenant not resolved")
		return
	}

	messages, err := h.svc.Conversations.History(c.Request.Context(), c.Param("id"), t.ID, 0)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, messages)
}

// GetConversation 取单个对话
// GET /api/:tenant/conversations/:id
func (h *ChatHandler) GetConversation(c *gin.Context) {
	t := middleware.TenantFrom(c)
	if t == nil {
		Unauthorized(c, "tenant not resolved")
		return
	}

	conv, err := h.svc.Conversations.Get(c.Request.Context(), c.Param("id"), t.ID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, conv)
}

// UpdateStatusRequest 状态更新请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus 更新对话状态
// PUT /api/:tenant/conversations/:id/status
func (h *ChatHandler) UpdateStatus(c *gin.Context) {
	t := middleware.TenantFrom(c)
	if t == nil {
		Unauthorized(c, "tenant not resolved")
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "status is required")
		return
	}

	conv, err := h.svc.Conversations.UpdateStatus(c.Request.Context(), c.Param("id"), t.ID, model.ResolutionStatus(req.Status))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, conv)
}
