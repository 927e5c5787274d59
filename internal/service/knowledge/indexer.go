package knowledge

import (
	"context"
	"fmt"
	"log"

	"github.com/ashwinyue/agenteva/internal/apperr"
	"github.com/ashwinyue/agenteva/internal/vectorstore"
	"github.com/cloudwego/eino/components/embedding"
	"golang.org/x/sync/errgroup"
)

// 同时向嵌入服务发起的请求上限
const embedConcurrency = 4

// Indexer 文档切块、嵌入并写入向量库
type Indexer struct {
	embedder embedding.Embedder
	store    vectorstore.Store
}

// NewIndexer 创建索引器
func NewIndexer(embedder embedding.Embedder, store vectorstore.Store) *Indexer {
	return &Indexer{embedder: embedder, store: store}
}

// IndexDocument 索引一个文档，返回块数
// 重复索引同一文档先清空旧向量再整批写入，不会出现新旧混合
func (idx *Indexer) IndexDocument(ctx context.Context, tenantID, documentID, title, content string, metadata map[string]interface{}) (int, error) {
	if tenantID == "" {
		return 0, apperr.Validationf("tenant id is required")
	}
	if documentID == "" {
		return 0, apperr.Validationf("document id is required")
	}

	chunks := ChunkText(content, DefaultChunkSize, DefaultChunkOverlap)
	if len(chunks) == 0 {
		return 0, apperr.Validationf("document %s has no indexable content", documentID)
	}

	embeddings := make([][]float64, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			vecs, err := idx.embedder.EmbedStrings(gctx, []string{chunk})
			if err != nil {
				return fmt.Errorf("failed to embed chunk %d: %w", i, err)
			}
			if len(vecs) == 0 {
				return fmt.Errorf("embedder returned no vector for chunk %d", i)
			}
			embeddings[i] = vecs[0]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, apperr.Wrap(apperr.KindProvider, "embedding failed", err)
	}

	vectors := make([]vectorstore.Vector, len(chunks))
	for i, chunk := range chunks {
		id := documentID
		if len(chunks) > 1 {
			id = fmt.Sprintf("%s_%d", documentID, i)
		}
		meta := make(map[string]interface{}, len(metadata)+6)
		for k, v := range metadata {
			meta[k] = v
		}
		// 保留键后写入，调用方元数据不能覆盖隔离与溯源字段
		meta[vectorstore.FieldTenantID] = tenantID
		meta[vectorstore.FieldDocumentID] = documentID
		meta["title"] = title
		meta["content"] = chunk
		meta["chunk_index"] = i
		meta["total_chunks"] = len(chunks)

		vectors[i] = vectorstore.Vector{ID: id, Values: embeddings[i], Metadata: meta}
	}

	// 先删旧向量，避免块数变化后残留
	if err := idx.store.DeleteByFilter(ctx, vectorstore.Filter{
		vectorstore.FieldTenantID:   tenantID,
		vectorstore.FieldDocumentID: documentID,
	}); err != nil {
		return 0, apperr.Wrap(apperr.KindPersistence, "failed to clear previous vectors", err)
	}

	if err := idx.store.Upsert(ctx, vectors); err != nil {
		return 0, apperr.Wrap(apperr.KindPersistence, fmt.Sprintf("failed to index document %s", documentID), err)
	}

	log.Printf("indexed document %s for tenant %s: %d chunks", documentID, tenantID, len(chunks))
	return len(chunks), nil
}

// DeleteDocument 删除文档全部向量，过滤条件同时带租户与文档
func (idx *Indexer) DeleteDocument(ctx context.Context, tenantID, documentID string) error {
	if tenantID == "" || documentID == "" {
		return apperr.Validationf("tenant id and document id are required")
	}
	err := idx.store.DeleteByFilter(ctx, vectorstore.Filter{
		vectorstore.FieldTenantID:   tenantID,
		vectorstore.FieldDocumentID: documentID,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, fmt.Sprintf("failed to delete document %s", documentID), err)
	}
	log.Printf("deleted vectors of document %s for tenant %s", documentID, tenantID)
	return nil
}
