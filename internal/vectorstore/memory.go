package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore 进程内向量库，用于开发环境与测试
type MemoryStore struct {
	mu      sync.RWMutex
	vectors map[string]Vector
}

// NewMemoryStore 创建内存后端
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vectors: make(map[string]Vector)}
}

func (s *MemoryStore) Upsert(ctx context.Context, vectors []Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		s.vectors[v.ID] = v
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, vector []float64, topK int, filter Filter) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Match
	for _, v := range s.vectors {
		if !matchesFilter(v.Metadata, filter) {
			continue
		}
		matches = append(matches, Match{
			ID:       v.ID,
			Score:    cosineSimilarity(vector, v.Values),
			Metadata: v.Metadata,
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *MemoryStore) DeleteByFilter(ctx context.Context, filter Filter) error {
	if len(filter) == 0 {
		return fmt.Errorf("delete filter must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range s.vectors {
		if matchesFilter(v.Metadata, filter) {
			delete(s.vectors, id)
		}
	}
	return nil
}

// Len 当前向量总数，仅测试使用
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

func matchesFilter(metadata map[string]interface{}, filter Filter) bool {
	for field, want := range filter {
		got, ok := metadata[field].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
