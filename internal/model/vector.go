package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// ChunkVector pgvector 后端的分块向量行
// 仅在 vector.backend = pgvector 时由该后端自行迁移（依赖 Postgres vector 扩展）
type ChunkVector struct {
	ID         string          `gorm:"type:varchar(255);primaryKey"`
	TenantID   string          `gorm:"type:varchar(36);not null;index"`
	DocumentID string          `gorm:"type:varchar(36);not null;index"`
	Embedding  pgvector.Vector `gorm:"type:vector(1536)"`
	Metadata   JSON            `gorm:"type:jsonb"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (ChunkVector) TableName() string {
	return "chunk_vectors"
}
