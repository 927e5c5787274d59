package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KnowledgeDocument 知识库文档
// 正文与元数据落库，分块向量写入向量库；VectorID 记录向量 id 前缀（即文档 id）
type KnowledgeDocument struct {
	ID         string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	TenantID   string    `json:"tenant_id" gorm:"type:varchar(36);not null;index"`
	Title      string    `json:"title" gorm:"type:varchar(500);not null"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	Metadata   JSON      `json:"metadata" gorm:"type:jsonb"`
	VectorID   string    `json:"vector_id,omitempty" gorm:"type:varchar(255);index"`
	ChunkCount int       `json:"chunk_count" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// BeforeCreate GORM 钩子
func (d *KnowledgeDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (KnowledgeDocument) TableName() string {
	return "knowledge_documents"
}
