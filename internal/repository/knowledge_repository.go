package repository

import (
	"context"

	"github.com/ashwinyue/agenteva/internal/model"
	"gorm.io/gorm"
)

// KnowledgeRepository 知识库文档数据访问
type KnowledgeRepository struct {
	db *gorm.DB
}

// NewKnowledgeRepository 创建知识库仓库
func NewKnowledgeRepository(db *gorm.DB) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

// Create 创建文档
func (r *KnowledgeRepository) Create(ctx context.Context, doc *model.KnowledgeDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// GetByID 按 id 获取文档（带租户过滤）
func (r *KnowledgeRepository) GetByID(ctx context.Context, id, tenantID string) (*model.KnowledgeDocument, error) {
	var doc model.KnowledgeDocument
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// List 按创建时间倒序列出租户文档
func (r *KnowledgeRepository) List(ctx context.Context, tenantID string) ([]*model.KnowledgeDocument, error) {
	var docs []*model.KnowledgeDocument
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

// Update 更新文档
func (r *KnowledgeRepository) Update(ctx context.Context, doc *model.KnowledgeDocument) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

// Delete 删除文档（带租户过滤）
func (r *KnowledgeRepository) Delete(ctx context.Context, id, tenantID string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&model.KnowledgeDocument{}).Error
}
