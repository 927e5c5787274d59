// Package vectorstore 提供租户无关的相似度索引
// 租户语义完全由调用方通过过滤条件表达；句柄在启动时构造一次，显式注入使用方
package vectorstore

import (
	"context"
	"fmt"

	"github.com/ashwinyue/agenteva/internal/config"
	"gorm.io/gorm"
)

// 过滤条件的保留键
const (
	FieldTenantID   = "tenant_id"
	FieldDocumentID = "document_id"
)

// Vector 待写入的向量
type Vector struct {
	ID       string
	Values   []float64
	Metadata map[string]interface{}
}

// Match 相似度查询命中
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]interface{}
}

// Filter 精确匹配过滤条件，key 为元数据字段名
type Filter map[string]string

// Store 向量库接口
type Store interface {
	// Upsert 批量写入，整批成功或整批失败
	Upsert(ctx context.Context, vectors []Vector) error
	// Query 相似度查询，返回按分数降序的至多 topK 条命中
	Query(ctx context.Context, vector []float64, topK int, filter Filter) ([]Match, error)
	// DeleteByFilter 删除所有匹配过滤条件的向量
	DeleteByFilter(ctx context.Context, filter Filter) error
}

// New 按配置创建向量库后端
func New(cfg *config.Config, db *gorm.DB) (Store, error) {
	switch cfg.Vector.Backend {
	case "es8", "":
		return NewES8Store(cfg)
	case "pgvector":
		return NewPGVectorStore(db)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", cfg.Vector.Backend)
	}
}
