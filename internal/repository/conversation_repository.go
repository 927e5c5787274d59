package repository

import (
	"context"
	"time"

	"github.com/ashwinyue/agenteva/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationRepository 对话数据访问
// 所有查询都带 tenant_id 过滤，这是租户隔离的正确性不变量，不是优化
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建对话仓库
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// FindActive 查找活跃对话（EndedAt 未设置）
func (r *ConversationRepository) FindActive(ctx context.Context, tenantID, sessionID, channel string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND session_id = ? AND channel = ? AND ended_at IS NULL",
			tenantID, sessionID, channel).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Create 创建对话，唯一索引冲突时返回 gorm.ErrDuplicatedKey
func (r *ConversationRepository) Create(ctx context.Context, conv *model.Conversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

// GetByID 按 id 获取对话（带租户过滤）
func (r *ConversationRepository) GetByID(ctx context.Context, id, tenantID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Update 保存对话全量字段（Active 为 nil 时写 NULL，解除唯一索引占位）
func (r *ConversationRepository) Update(ctx context.Context, conv *model.Conversation) error {
	return r.db.WithContext(ctx).Save(conv).Error
}

// CreateMessage 追加消息，从不更新已有行
// Seq 由数据库在插入时按对话内 MAX(seq)+1 计算，跨进程、跨重启保持单调
func (r *ConversationRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Model(&model.Message{}).Create(map[string]interface{}{
		"id":              msg.ID,
		"conversation_id": msg.ConversationID,
		"tenant_id":       msg.TenantID,
		"role":            msg.Role,
		"content":         msg.Content,
		"metadata":        msg.Metadata,
		"seq":             gorm.Expr("(SELECT COALESCE(MAX(m.seq), 0) + 1 FROM messages m WHERE m.conversation_id = ?)", msg.ConversationID),
		"created_at":      msg.CreatedAt,
	}).Error
}

// ListMessages 按创建时间升序取对话消息，同一时间按插入序号
// conversation_id 已隐含租户范围，tenant_id 过滤是刻意的纵深防御
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID, tenantID string, limit int) ([]*model.Message, error) {
	var messages []*model.Message
	query := r.db.WithContext(ctx).
		Where("conversation_id = ? AND tenant_id = ?", conversationID, tenantID).
		Order("created_at ASC").Order("seq ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&messages).Error
	return messages, err
}

// CountMessages 统计对话消息数
func (r *ConversationRepository) CountMessages(ctx context.Context, conversationID, tenantID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND tenant_id = ?", conversationID, tenantID).
		Count(&count).Error
	return count, err
}

// CountStartedBetween 统计时间段内开始的对话数
func (r *ConversationRepository) CountStartedBetween(ctx context.Context, tenantID string, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("tenant_id = ? AND started_at >= ? AND started_at < ?", tenantID, from, to).
		Count(&count).Error
	return count, err
}

// CountByStatusBetween 统计时间段内开始且处于指定状态的对话数
func (r *ConversationRepository) CountByStatusBetween(ctx context.Context, tenantID string, status model.ResolutionStatus, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("tenant_id = ? AND resolution_status = ? AND started_at >= ? AND started_at < ?",
			tenantID, status, from, to).
		Count(&count).Error
	return count, err
}

// ListMessagesByRoleBetween 取时间段内指定角色的消息（供日指标聚合）
func (r *ConversationRepository) ListMessagesByRoleBetween(ctx context.Context, tenantID string, role model.MessageRole, from, to time.Time) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND role = ? AND created_at >= ? AND created_at < ?",
			tenantID, role, from, to).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}
