package knowledge

import (
	"context"
	"log"

	"github.com/ashwinyue/agenteva/internal/apperr"
	"github.com/ashwinyue/agenteva/internal/vectorstore"
	"github.com/cloudwego/eino/components/embedding"
)

// 检索缺省值
const (
	DefaultTopK           = 5
	DefaultScoreThreshold = 0.7
)

// Document 检索命中的文档片段
type Document struct {
	ID       string                 `json:"id"`
	Title    string                 `json:"title"`
	Content  string                 `json:"content"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SearchOptions 检索参数，零值使用缺省
type SearchOptions struct {
	TopK           int
	ScoreThreshold float64
	HasThreshold   bool
}

// Retriever 租户隔离的相似度检索
type Retriever struct {
	embedder embedding.Embedder
	store    vectorstore.Store
}

// NewRetriever 创建检索器
func NewRetriever(embedder embedding.Embedder, store vectorstore.Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Search 检索知识库
// 检索属于可降级路径：嵌入或查询失败时记日志并返回空结果，让上层继续无上下文作答
func (r *Retriever) Search(ctx context.Context, tenantID, query string, opts *SearchOptions) ([]Document, error) {
	if tenantID == "" {
		return nil, apperr.Validationf("tenant id is required")
	}

	topK := DefaultTopK
	threshold := DefaultScoreThreshold
	if opts != nil {
		if opts.TopK > 0 {
			topK = opts.TopK
		}
		if opts.HasThreshold {
			threshold = opts.ScoreThreshold
		}
	}

	vecs, err := r.embedder.EmbedStrings(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		log.Printf("query embedding failed for tenant %s: %v", tenantID, err)
		return []Document{}, nil
	}

	matches, err := r.store.Query(ctx, vecs[0], topK, vectorstore.Filter{
		vectorstore.FieldTenantID: tenantID,
	})
	if err != nil {
		log.Printf("vector search failed for tenant %s: %v", tenantID, err)
		return []Document{}, nil
	}

	docs := make([]Document, 0, len(matches))
	for _, m := range matches {
		if m.Score < threshold {
			continue
		}
		doc := Document{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
		if m.Metadata != nil {
			doc.Title, _ = m.Metadata["title"].(string)
			doc.Content, _ = m.Metadata["content"].(string)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
