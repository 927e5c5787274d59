package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashwinyue/agenteva/internal/apperr"
	"github.com/ashwinyue/agenteva/internal/model"
	"github.com/ashwinyue/agenteva/internal/repository"
	"gorm.io/gorm"
)

// Service 知识库文档服务，打通文档表与向量库
type Service struct {
	repo      *repository.KnowledgeRepository
	indexer   *Indexer
	retriever *Retriever
}

// NewService 创建知识库服务
func NewService(repo *repository.KnowledgeRepository, indexer *Indexer, retriever *Retriever) *Service {
	return &Service{repo: repo, indexer: indexer, retriever: retriever}
}

// CreateDocument 落库并索引文档
func (s *Service) CreateDocument(ctx context.Context, tenantID, title, content string, metadata map[string]interface{}) (*model.KnowledgeDocument, error) {
	if title == "" || content == "" {
		return nil, apperr.Validationf("title and content are required")
	}

	doc := &model.KnowledgeDocument{
		TenantID: tenantID,
		Title:    title,
		Content:  content,
		Metadata: model.JSON(metadata),
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "failed to create document", err)
	}

	count, err := s.indexer.IndexDocument(ctx, tenantID, doc.ID, title, content, metadata)
	if err != nil {
		return nil, err
	}
	doc.VectorID = doc.ID
	doc.ChunkCount = count
	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "failed to record index state", err)
	}
	return doc, nil
}

// UpdateDocument 更新文档并重新索引
func (s *Service) UpdateDocument(ctx context.Context, tenantID, id, title, content string, metadata map[string]interface{}) (*model.KnowledgeDocument, error) {
	doc, err := s.GetDocument(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if title != "" {
		doc.Title = title
	}
	if content != "" {
		doc.Content = content
	}
	if metadata != nil {
		doc.Metadata = model.JSON(metadata)
	}

	count, err := s.indexer.IndexDocument(ctx, tenantID, doc.ID, doc.Title, doc.Content, doc.Metadata)
	if err != nil {
		return nil, err
	}
	doc.ChunkCount = count
	doc.VectorID = doc.ID
	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "failed to update document", err)
	}
	return doc, nil
}

// DeleteDocument 删除向量与文档记录
func (s *Service) DeleteDocument(ctx context.Context, tenantID, id string) error {
	if _, err := s.GetDocument(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.indexer.DeleteDocument(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, tenantID); err != nil {
		return apperr.Wrap(apperr.KindPersistence, "failed to delete document", err)
	}
	return nil
}

// GetDocument 取单个文档
func (s *Service) GetDocument(ctx context.Context, tenantID, id string) (*model.KnowledgeDocument, error) {
	doc, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validationf("document %s not found", id)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, fmt.Sprintf("failed to load document %s", id), err)
	}
	return doc, nil
}

// ListDocuments 列出租户全部文档
func (s *Service) ListDocuments(ctx context.Context, tenantID string) ([]*model.KnowledgeDocument, error) {
	docs, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "failed to list documents", err)
	}
	return docs, nil
}

// Search 对外暴露检索入口
func (s *Service) Search(ctx context.Context, tenantID, query string, opts *SearchOptions) ([]Document, error) {
	return s.retriever.Search(ctx, tenantID, query, opts)
}
