package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ResolutionStatus 对话处理状态
type ResolutionStatus string

const (
	StatusPending   ResolutionStatus = "pending"   // 进行中
	StatusResolved  ResolutionStatus = "resolved"  // 已解决
	StatusEscalated ResolutionStatus = "escalated" // 已转人工
	StatusAbandoned ResolutionStatus = "abandoned" // 已放弃
)

// IsTerminal 判断是否为终态（终态不可再回到 pending）
func (s ResolutionStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusEscalated || s == StatusAbandoned
}

// Valid 判断是否为合法状态值
func (s ResolutionStatus) Valid() bool {
	return s == StatusPending || s.IsTerminal()
}

// MessageRole 消息角色
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Conversation 对话
// 活跃性约束：同一 (tenant, session, channel) 最多存在一条活跃对话。
// Active 在 EndedAt 未设置时为 true，结束后置 NULL，配合唯一索引实现
// 并发首条消息下的单活跃对话保证（NULL 不参与唯一冲突）。
type Conversation struct {
	ID               string           `json:"id" gorm:"type:varchar(36);primaryKey"`
	TenantID         string           `json:"tenant_id" gorm:"type:varchar(36);not null;index;uniqueIndex:idx_conversations_active,priority:1"`
	SessionID        string           `json:"session_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_conversations_active,priority:2"`
	Channel          string           `json:"channel" gorm:"type:varchar(50);not null;default:'web';uniqueIndex:idx_conversations_active,priority:3"`
	Active           *bool            `json:"-" gorm:"uniqueIndex:idx_conversations_active,priority:4"`
	StartedAt        time.Time        `json:"started_at" gorm:"not null"`
	EndedAt          *time.Time       `json:"ended_at,omitempty"`
	ResolutionStatus ResolutionStatus `json:"resolution_status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Escalated        bool             `json:"escalated" gorm:"not null;default:false;index"`
	Metadata         JSON             `json:"metadata" gorm:"type:jsonb"`

	Messages []Message `json:"messages,omitempty" gorm:"foreignKey:ConversationID"`
}

// BeforeCreate GORM 钩子
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (Conversation) TableName() string {
	return "conversations"
}

// Message 消息（只追加，创建后不再修改或删除）
// TenantID 与所属对话冗余，读写都按两者过滤，作为租户隔离的纵深防御
type Message struct {
	ID             string      `json:"id" gorm:"type:varchar(36);primaryKey"`
	ConversationID string      `json:"conversation_id" gorm:"type:varchar(36);not null;index"`
	TenantID       string      `json:"tenant_id" gorm:"type:varchar(36);not null;index"`
	Role           MessageRole `json:"role" gorm:"type:varchar(20);not null;index"`
	Content        string      `json:"content" gorm:"type:text;not null"`
	Metadata       JSON        `json:"metadata" gorm:"type:jsonb"`
	// Seq 对话内插入序号，由数据库在写入时计算，创建时间相同时保证稳定排序
	Seq       int64     `json:"-" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index"`
}

// BeforeCreate GORM 钩子
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}
