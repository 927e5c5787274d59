package knowledge

import (
	"context"
	"crypto/sha256"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ashwinyue/agenteva/internal/apperr"
	"github.com/ashwinyue/agenteva/internal/vectorstore"
	"github.com/cloudwego/eino/components/embedding"
)

// mockEmbedder 可注入行为的嵌入器
type mockEmbedder struct {
	embedFunc func(ctx context.Context, texts []string) ([][]float64, error)
}

func (m *mockEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if m.embedFunc != nil {
		return m.embedFunc(ctx, texts)
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = deterministicVector(text)
	}
	return out, nil
}

// deterministicVector 由文本内容导出稳定向量
func deterministicVector(text string) []float64 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float64, 8)
	for i := range vec {
		vec[i] = float64(sum[i])/255.0 - 0.5
	}
	return vec
}

func TestIndexDocumentSingleChunk(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	idx := NewIndexer(&mockEmbedder{}, store)

	count, err := idx.IndexDocument(ctx, "acme", "doc-1", "Hours", "We are open 9 to 5.", map[string]interface{}{"category": "faq"})
	if err != nil {
		t.Fatalf("IndexDocument failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 chunk, got %d", count)
	}

	matches, err := store.Query(ctx, deterministicVector("We are open 9 to 5."), 5, vectorstore.Filter{vectorstore.FieldTenantID: "acme"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(matches))
	}
	m := matches[0]
	if m.ID != "doc-1" {
		t.Errorf("single chunk should use bare document id, got %s", m.ID)
	}
	if m.Metadata["category"] != "faq" {
		t.Error("caller metadata not carried")
	}
	if m.Metadata["content"] != "We are open 9 to 5." || m.Metadata["title"] != "Hours" {
		t.Errorf("reserved metadata missing: %v", m.Metadata)
	}
}

func TestIndexDocumentMultiChunkIDs(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	idx := NewIndexer(&mockEmbedder{}, store)

	text := strings.Repeat("Returns are accepted within thirty days of purchase. ", 60)
	count, err := idx.IndexDocument(ctx, "acme", "doc-2", "Returns", text, nil)
	if err != nil {
		t.Fatalf("IndexDocument failed: %v", err)
	}
	if count < 2 {
		t.Fatalf("expected multiple chunks, got %d", count)
	}
	if store.Len() != count {
		t.Errorf("expected %d vectors, got %d", count, store.Len())
	}

	matches, _ := store.Query(ctx, deterministicVector(text[:50]), count+5, vectorstore.Filter{vectorstore.FieldDocumentID: "doc-2"})
	seen := map[string]bool{}
	for _, m := range matches {
		if !strings.HasPrefix(m.ID, "doc-2_") {
			t.Errorf("unexpected chunk id %s", m.ID)
		}
		if seen[m.ID] {
			t.Errorf("duplicate chunk id %s", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestIndexDocumentReindexReplacesVectors(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	idx := NewIndexer(&mockEmbedder{}, store)

	long := strings.Repeat("Old content about the original shipping policy of the store. ", 60)
	count1, err := idx.IndexDocument(ctx, "acme", "doc-3", "Shipping", long, nil)
	if err != nil {
		t.Fatalf("first index failed: %v", err)
	}
	if count1 < 2 {
		t.Fatalf("expected multiple chunks, got %d", count1)
	}

	// 缩短后重建，旧块必须全部清掉
	count2, err := idx.IndexDocument(ctx, "acme", "doc-3", "Shipping", "New short policy.", nil)
	if err != nil {
		t.Fatalf("reindex failed: %v", err)
	}
	if count2 != 1 {
		t.Fatalf("expected 1 chunk after reindex, got %d", count2)
	}
	if store.Len() != 1 {
		t.Errorf("expected stale chunks removed, store has %d vectors", store.Len())
	}
}

func TestIndexDocumentEmbeddingFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	var calls int32
	embedder := &mockEmbedder{
		embedFunc: func(_ context.Context, texts []string) ([][]float64, error) {
			if atomic.AddInt32(&calls, 1) > 2 {
				return nil, errors.New("rate limited")
			}
			out := make([][]float64, len(texts))
			for i, text := range texts {
				out[i] = deterministicVector(text)
			}
			return out, nil
		},
	}
	idx := NewIndexer(embedder, store)

	text := strings.Repeat("A sentence that pads this document well past one chunk in length. ", 80)
	_, err := idx.IndexDocument(ctx, "acme", "doc-4", "Partial", text, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperr.Is(err, apperr.KindProvider) {
		t.Errorf("expected provider error, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("partial index leaked %d vectors", store.Len())
	}
}

func TestIndexDocumentCallerMetadataCannotOverrideIsolation(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	idx := NewIndexer(&mockEmbedder{}, store)

	_, err := idx.IndexDocument(ctx, "acme", "doc-5", "Spoof", "Some content.", map[string]interface{}{
		vectorstore.FieldTenantID: "globex",
		"title":                   "spoofed",
	})
	if err != nil {
		t.Fatalf("IndexDocument failed: %v", err)
	}

	matches, _ := store.Query(ctx, deterministicVector("Some content."), 5, vectorstore.Filter{vectorstore.FieldTenantID: "globex"})
	if len(matches) != 0 {
		t.Error("caller metadata must not reassign tenant")
	}
	matches, _ = store.Query(ctx, deterministicVector("Some content."), 5, vectorstore.Filter{vectorstore.FieldTenantID: "acme"})
	if len(matches) != 1 || matches[0].Metadata["title"] != "Spoof" {
		t.Error("reserved keys must win over caller metadata")
	}
}

func TestIndexDocumentValidation(t *testing.T) {
	idx := NewIndexer(&mockEmbedder{}, vectorstore.NewMemoryStore())
	ctx := context.Background()

	if _, err := idx.IndexDocument(ctx, "", "doc", "t", "c", nil); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for missing tenant, got %v", err)
	}
	if _, err := idx.IndexDocument(ctx, "acme", "", "t", "c", nil); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for missing document id, got %v", err)
	}
	if _, err := idx.IndexDocument(ctx, "acme", "doc", "t", "   ", nil); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for blank content, got %v", err)
	}
}

func TestDeleteDocumentScopedToTenant(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	idx := NewIndexer(&mockEmbedder{}, store)

	if _, err := idx.IndexDocument(ctx, "acme", "shared-id", "A", "Acme doc.", nil); err != nil {
		t.Fatal(err)
	}
	// 不同租户可使用相同文档 id，删除互不影响
	if err := idx.DeleteDocument(ctx, "globex", "shared-id"); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if store.Len() != 1 {
		t.Error("delete for another tenant removed foreign vectors")
	}
	if err := idx.DeleteDocument(ctx, "acme", "shared-id"); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if store.Len() != 0 {
		t.Error("expected vectors removed")
	}
}
