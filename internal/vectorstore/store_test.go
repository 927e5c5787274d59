package vectorstore

import (
	"context"
	"encoding/json"
	"testing"
)

func TestMemoryStoreQueryFiltering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Upsert(ctx, []Vector{
		{ID: "a1", Values: []float64{1, 0}, Metadata: map[string]interface{}{FieldTenantID: "acme", "text": "hours"}},
		{ID: "a2", Values: []float64{0.9, 0.1}, Metadata: map[string]interface{}{FieldTenantID: "acme", "text": "refunds"}},
		{ID: "b1", Values: []float64{1, 0}, Metadata: map[string]interface{}{FieldTenantID: "globex", "text": "shipping"}},
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	matches, err := store.Query(ctx, []float64{1, 0}, 10, Filter{FieldTenantID: "acme"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	for _, m := range matches {
		if m.Metadata[FieldTenantID] != "acme" {
			t.Errorf("match %s leaked from tenant %v", m.ID, m.Metadata[FieldTenantID])
		}
	}
	if matches[0].ID != "a1" {
		t.Errorf("expected highest score first, got %s", matches[0].ID)
	}
}

func TestMemoryStoreTopK(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	vectors := []Vector{
		{ID: "v1", Values: []float64{1, 0}, Metadata: map[string]interface{}{FieldTenantID: "acme"}},
		{ID: "v2", Values: []float64{0.8, 0.2}, Metadata: map[string]interface{}{FieldTenantID: "acme"}},
		{ID: "v3", Values: []float64{0.5, 0.5}, Metadata: map[string]interface{}{FieldTenantID: "acme"}},
	}
	if err := store.Upsert(ctx, vectors); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	matches, err := store.Query(ctx, []float64{1, 0}, 2, Filter{FieldTenantID: "acme"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
}

func TestMemoryStoreUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := []Vector{{ID: "v1", Values: []float64{1, 0}, Metadata: map[string]interface{}{FieldTenantID: "acme", "text": "old"}}}
	second := []Vector{{ID: "v1", Values: []float64{0, 1}, Metadata: map[string]interface{}{FieldTenantID: "acme", "text": "new"}}}
	if err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if store.Len() != 1 {
		t.Fatalf("expected 1 vector after overwrite, got %d", store.Len())
	}
	matches, err := store.Query(ctx, []float64{0, 1}, 1, nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if matches[0].Metadata["text"] != "new" {
		t.Errorf("expected overwritten metadata, got %v", matches[0].Metadata["text"])
	}
}

func TestMemoryStoreDeleteByFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Upsert(ctx, []Vector{
		{ID: "d1", Values: []float64{1, 0}, Metadata: map[string]interface{}{FieldTenantID: "acme", FieldDocumentID: "doc-1"}},
		{ID: "d1_1", Values: []float64{0, 1}, Metadata: map[string]interface{}{FieldTenantID: "acme", FieldDocumentID: "doc-1"}},
		{ID: "d2", Values: []float64{1, 0}, Metadata: map[string]interface{}{FieldTenantID: "acme", FieldDocumentID: "doc-2"}},
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := store.DeleteByFilter(ctx, Filter{FieldTenantID: "acme", FieldDocumentID: "doc-1"}); err != nil {
		t.Fatalf("DeleteByFilter failed: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 vector remaining, got %d", store.Len())
	}

	if err := store.DeleteByFilter(ctx, nil); err == nil {
		t.Error("expected error for empty filter")
	}
}

func TestBuildKNNQuery(t *testing.T) {
	query := buildKNNQuery([]float64{0.1, 0.2}, 5, Filter{FieldTenantID: "acme"})

	data, err := json.Marshal(query)
	if err != nil {
		t.Fatalf("query not serializable: %v", err)
	}

	var decoded struct {
		KNN struct {
			Field         string    `json:"field"`
			QueryVector   []float64 `json:"query_vector"`
			K             int       `json:"k"`
			NumCandidates int       `json:"num_candidates"`
			Filter        *struct {
				Bool struct {
					Filter []map[string]map[string]string `json:"filter"`
				} `json:"bool"`
			} `json:"filter"`
		} `json:"knn"`
		Size int `json:"size"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to decode query: %v", err)
	}

	if decoded.KNN.Field != "embedding" {
		t.Errorf("expected field embedding, got %s", decoded.KNN.Field)
	}
	if decoded.KNN.K != 5 || decoded.Size != 5 {
		t.Errorf("expected k=5 size=5, got k=%d size=%d", decoded.KNN.K, decoded.Size)
	}
	if decoded.KNN.NumCandidates != 50 {
		t.Errorf("expected num_candidates=50, got %d", decoded.KNN.NumCandidates)
	}
	if decoded.KNN.Filter == nil {
		t.Fatal("expected tenant filter clause")
	}
	if got := decoded.KNN.Filter.Bool.Filter[0]["term"][FieldTenantID]; got != "acme" {
		t.Errorf("expected tenant term acme, got %s", got)
	}
}
