package chat

import (
	"context"
	"log"
	"time"

	"github.com/ashwinyue/agenteva/internal/apperr"
	"github.com/ashwinyue/agenteva/internal/model"
	"github.com/ashwinyue/agenteva/internal/service/conversation"
	"github.com/ashwinyue/agenteva/internal/service/knowledge"
	"github.com/ashwinyue/agenteva/internal/service/tenant"
	"github.com/google/uuid"
)

// ErrorResponse 流程致命失败时返回给终端用户的固定话术
const ErrorResponse = "I apologize, but I'm experiencing technical difficulties right now. " +
	"Please try again in a moment, or contact our support team for immediate assistance."

// DefaultProcessTimeout 单条消息处理的缺省截止时间
const DefaultProcessTimeout = 25 * time.Second

// Result 处理一条用户消息的完整结果
type Result struct {
	Response       string  `json:"response"`
	Escalate       bool    `json:"escalate"`
	Confidence     float64 `json:"confidence"`
	SessionID      string  `json:"session_id"`
	ConversationID string  `json:"conversation_id"`
}

// Orchestrator 消息处理编排器
type Orchestrator struct {
	tenants   *tenant.Service
	store     *conversation.Store
	retriever *knowledge.Retriever
	generator *Generator
	timeout   time.Duration
}

// NewOrchestrator 创建编排器
func NewOrchestrator(tenants *tenant.Service, store *conversation.Store, retriever *knowledge.Retriever, generator *Generator, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultProcessTimeout
	}
	return &Orchestrator{
		tenants:   tenants,
		store:     store,
		retriever: retriever,
		generator: generator,
		timeout:   timeout,
	}
}

// ProcessMessage 处理一条用户消息
// 入参非法返回校验错误；其余任何致命失败都退化为固定道歉话术，
// 终端用户永远拿到一个可展示的结果而不是错误页
func (o *Orchestrator) ProcessMessage(ctx context.Context, tenantSlug, message, sessionID, channel string) (*Result, error) {
	if message == "" {
		return nil, apperr.Validationf("message is required")
	}
	if sessionID == "" {
		return nil, apperr.Validationf("session id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	result, err := o.process(ctx, tenantSlug, message, sessionID, channel)
	if err != nil {
		log.Printf("message processing failed for tenant %s session %s: %v", tenantSlug, sessionID, err)
		// 对话可能没建起来，给一个临时 id 保证字段完整
		return &Result{
			Response:       ErrorResponse,
			Escalate:       true,
			Confidence:     0,
			SessionID:      sessionID,
			ConversationID: uuid.New().String(),
		}, nil
	}
	return result, nil
}

func (o *Orchestrator) process(ctx context.Context, tenantSlug, message, sessionID, channel string) (*Result, error) {
	t, err := o.tenants.GetBySlug(ctx, tenantSlug)
	if err != nil {
		return nil, err
	}
	cfg := o.tenants.ResolveConfig(t)

	conv, _, err := o.store.GetOrCreate(ctx, t.ID, sessionID, channel)
	if err != nil {
		return nil, err
	}

	if _, err := o.store.SaveMessage(ctx, conv.ID, t.ID, model.RoleUser, message, map[string]interface{}{
		"channel": conv.Channel,
	}); err != nil {
		return nil, err
	}

	history, err := o.store.History(ctx, conv.ID, t.ID, 0)
	if err != nil {
		return nil, err
	}

	// 检索不可用时返回空结果，继续无上下文作答
	docs, err := o.retriever.Search(ctx, t.ID, message, nil)
	if err != nil {
		return nil, err
	}

	gen := o.generator.Generate(ctx, cfg, message, history, docs)

	// history 已含刚落库的用户消息
	escalate, reason := ShouldEscalate(cfg, message, gen.Response, len(history))
	// 模型调用失败走了兜底话术时，无论内容如何都转人工
	if gen.Fallback && !escalate {
		escalate, reason = true, "provider fallback"
	}

	if _, err := o.store.SaveMessage(ctx, conv.ID, t.ID, model.RoleAssistant, gen.Response, map[string]interface{}{
		"confidence":           gen.Confidence,
		"escalation_triggered": escalate,
		"documents_used":       len(docs),
	}); err != nil {
		return nil, err
	}

	if escalate {
		if _, err := o.store.UpdateStatus(ctx, conv.ID, t.ID, model.StatusEscalated); err != nil {
			return nil, err
		}
		log.Printf("conversation %s escalated (%s)", conv.ID, reason)
	}

	return &Result{
		Response:       gen.Response,
		Escalate:       escalate,
		Confidence:     gen.Confidence,
		SessionID:      sessionID,
		ConversationID: conv.ID,
	}, nil
}
