package vectorstore

import (
	"context"
	"fmt"

	"github.com/ashwinyue/agenteva/internal/model"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PGVectorStore 基于 pgvector 扩展的向量库，复用业务数据库连接
type PGVectorStore struct {
	db *gorm.DB
}

// NewPGVectorStore 创建 pgvector 后端并迁移向量表
func NewPGVectorStore(db *gorm.DB) (*PGVectorStore, error) {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("failed to create vector extension: %w", err)
	}
	if err := db.AutoMigrate(&model.ChunkVector{}); err != nil {
		return nil, fmt.Errorf("failed to migrate chunk_vectors: %w", err)
	}
	return &PGVectorStore{db: db}, nil
}

// Upsert 单事务批量写入，主键冲突时覆盖
func (s *PGVectorStore) Upsert(ctx context.Context, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	rows := make([]model.ChunkVector, 0, len(vectors))
	for _, v := range vectors {
		row := model.ChunkVector{
			ID:        v.ID,
			Embedding: pgvector.NewVector(toFloat32(v.Values)),
			Metadata:  model.JSON(v.Metadata),
		}
		if v.Metadata != nil {
			if tenant, ok := v.Metadata[FieldTenantID].(string); ok {
				row.TenantID = tenant
			}
			if docID, ok := v.Metadata[FieldDocumentID].(string); ok {
				row.DocumentID = docID
			}
		}
		rows = append(rows, row)
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to upsert chunk vectors: %w", err)
	}
	return nil
}

// Query 余弦距离排序查询，分数为 1 - distance
func (s *PGVectorStore) Query(ctx context.Context, vector []float64, topK int, filter Filter) ([]Match, error) {
	qv := pgvector.NewVector(toFloat32(vector))

	query := s.db.WithContext(ctx).
		Model(&model.ChunkVector{}).
		Select("id, metadata, 1 - (embedding <=> ?) AS score", qv)
	for field, value := range filter {
		query = query.Where(fmt.Sprintf("%s = ?", field), value)
	}

	var rows []struct {
		ID       string
		Metadata model.JSON
		Score    float64
	}
	err := query.
		Clauses(clause.OrderBy{Expression: clause.Expr{SQL: "embedding <=> ?", Vars: []interface{}{qv}}}).
		Limit(topK).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk vectors: %w", err)
	}

	matches := make([]Match, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, Match{ID: row.ID, Score: row.Score, Metadata: row.Metadata})
	}
	return matches, nil
}

// DeleteByFilter 按过滤条件删除
func (s *PGVectorStore) DeleteByFilter(ctx context.Context, filter Filter) error {
	if len(filter) == 0 {
		return fmt.Errorf("delete filter must not be empty")
	}

	query := s.db.WithContext(ctx)
	for field, value := range filter {
		query = query.Where(fmt.Sprintf("%s = ?", field), value)
	}
	if err := query.Delete(&model.ChunkVector{}).Error; err != nil {
		return fmt.Errorf("failed to delete chunk vectors: %w", err)
	}
	return nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
