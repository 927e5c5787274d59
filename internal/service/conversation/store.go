// Package conversation 对话与消息的持久化语义
package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashwinyue/agenteva/internal/apperr"
	"github.com/ashwinyue/agenteva/internal/model"
	"github.com/ashwinyue/agenteva/internal/repository"
	"gorm.io/gorm"
)

// DefaultChannel 未指定渠道时的缺省值
const DefaultChannel = "web"

// Store 对话存储服务
type Store struct {
	repo *repository.ConversationRepository
}

// NewStore 创建对话存储
func NewStore(repo *repository.ConversationRepository) *Store {
	return &Store{repo: repo}
}

// GetOrCreate 取活跃对话，不存在则创建
// 并发对同一 (tenant, session, channel) 的首条消息靠唯一索引裁决：
// 冲突方收到 gorm.ErrDuplicatedKey 后回读胜者，绝不产生两条活跃对话
func (s *Store) GetOrCreate(ctx context.Context, tenantID, sessionID, channel string) (*model.Conversation, bool, error) {
	if tenantID == "" || sessionID == "" {
		return nil, false, apperr.Validationf("tenant id and session id are required")
	}
	if channel == "" {
		channel = DefaultChannel
	}

	conv, err := s.repo.FindActive(ctx, tenantID, sessionID, channel)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperr.Wrap(apperr.KindPersistence, "failed to look up conversation", err)
	}

	active := true
	conv = &model.Conversation{
		TenantID:         tenantID,
		SessionID:        sessionID,
		Channel:          channel,
		Active:           &active,
		StartedAt:        time.Now().UTC(),
		ResolutionStatus: model.StatusPending,
	}
	err = s.repo.Create(ctx, conv)
	if err == nil {
		return conv, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, apperr.Wrap(apperr.KindPersistence, "failed to create conversation", err)
	}

	// 输掉竞态，回读胜者
	conv, err = s.repo.FindActive(ctx, tenantID, sessionID, channel)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindPersistence, "failed to load winning conversation", err)
	}
	return conv, false, nil
}

// SaveMessage 追加一条消息
// 消息只追加不修改；Seq 由数据库按对话内自增计算，时间戳相同时仍有稳定顺序
func (s *Store) SaveMessage(ctx context.Context, conversationID, tenantID string, role model.MessageRole, content string, metadata map[string]interface{}) (*model.Message, error) {
	switch role {
	case model.RoleUser, model.RoleAssistant, model.RoleSystem:
	default:
		return nil, apperr.Validationf("invalid message role: %s", role)
	}
	if content == "" {
		return nil, apperr.Validationf("message content is required")
	}

	// 校验对话归属，拒绝跨租户写入
	if _, err := s.getConversation(ctx, conversationID, tenantID); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ConversationID: conversationID,
		TenantID:       tenantID,
		Role:           role,
		Content:        content,
		Metadata:       model.JSON(metadata),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "failed to save message", err)
	}
	return msg, nil
}

// History 按时间升序取对话消息，limit <= 0 表示不限
func (s *Store) History(ctx context.Context, conversationID, tenantID string, limit int) ([]*model.Message, error) {
	if _, err := s.getConversation(ctx, conversationID, tenantID); err != nil {
		return nil, err
	}
	messages, err := s.repo.ListMessages(ctx, conversationID, tenantID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "failed to load history", err)
	}
	return messages, nil
}

// CountMessages 对话消息总数
func (s *Store) CountMessages(ctx context.Context, conversationID, tenantID string) (int64, error) {
	count, err := s.repo.CountMessages(ctx, conversationID, tenantID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindPersistence, "failed to count messages", err)
	}
	return count, nil
}

// Get 取单个对话
func (s *Store) Get(ctx context.Context, conversationID, tenantID string) (*model.Conversation, error) {
	return s.getConversation(ctx, conversationID, tenantID)
}

// UpdateStatus 状态迁移
// pending 可迁入任意终态；终态之间不可互换；重复设置当前状态幂等返回。
// 进入终态时设置 EndedAt 并释放活跃槽位，让同一会话可以开启新对话
func (s *Store) UpdateStatus(ctx context.Context, conversationID, tenantID string, status model.ResolutionStatus) (*model.Conversation, error) {
	if !status.Valid() {
		return nil, apperr.Validationf("invalid resolution status: %s", status)
	}

	conv, err := s.getConversation(ctx, conversationID, tenantID)
	if err != nil {
		return nil, err
	}

	if conv.ResolutionStatus == status {
		return conv, nil
	}
	if conv.ResolutionStatus.IsTerminal() {
		return nil, apperr.Validationf("conversation %s already %s, cannot become %s",
			conversationID, conv.ResolutionStatus, status)
	}

	conv.ResolutionStatus = status
	if status == model.StatusEscalated {
		conv.Escalated = true
	}
	if status.IsTerminal() {
		if conv.EndedAt == nil {
			now := time.Now().UTC()
			conv.EndedAt = &now
		}
		conv.Active = nil
	}
	if err := s.repo.Update(ctx, conv); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "failed to update conversation status", err)
	}
	return conv, nil
}

func (s *Store) getConversation(ctx context.Context, conversationID, tenantID string) (*model.Conversation, error) {
	if conversationID == "" || tenantID == "" {
		return nil, apperr.Validationf("conversation id and tenant id are required")
	}
	conv, err := s.repo.GetByID(ctx, conversationID, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validationf("conversation %s not found", conversationID)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, fmt.Sprintf("failed to load conversation %s", conversationID), err)
	}
	return conv, nil
}
