package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ashwinyue/agenteva/internal/config"
	"github.com/elastic/go-elasticsearch/v8"
)

// ES8Store 基于 Elasticsearch dense_vector + kNN 的向量库
type ES8Store struct {
	client *elasticsearch.Client
	index  string
	dims   int
}

// NewES8Store 创建 ES8 后端并确保索引存在
func NewES8Store(cfg *config.Config) (*ES8Store, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Elastic.Host},
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	s := &ES8Store{
		client: client,
		index:  cfg.Elastic.IndexPrefix + "_chunks",
		dims:   cfg.Vector.Dimensions,
	}
	if err := s.ensureIndex(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureIndex 索引不存在时按 cosine 相似度建立映射
func (s *ES8Store) ensureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"embedding": map[string]interface{}{
					"type":       "dense_vector",
					"dims":       s.dims,
					"index":      true,
					"similarity": "cosine",
				},
				FieldTenantID:   map[string]interface{}{"type": "keyword"},
				FieldDocumentID: map[string]interface{}{"type": "keyword"},
				"metadata":      map[string]interface{}{"type": "object", "enabled": true},
			},
		},
	}
	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	createRes, err := s.client.Indices.Create(s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader(body)))
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", s.index, err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("failed to create index %s: %s", s.index, createRes.String())
	}
	return nil
}

// Upsert 通过 bulk API 写入，文档 ID 取向量 ID，重复写入覆盖旧值
func (s *ES8Store) Upsert(ctx context.Context, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, v := range vectors {
		action := map[string]interface{}{
			"index": map[string]interface{}{"_index": s.index, "_id": v.ID},
		}
		doc := map[string]interface{}{
			"embedding": v.Values,
			"metadata":  v.Metadata,
		}
		if v.Metadata != nil {
			if tenant, ok := v.Metadata[FieldTenantID].(string); ok {
				doc[FieldTenantID] = tenant
			}
			if docID, ok := v.Metadata[FieldDocumentID].(string); ok {
				doc[FieldDocumentID] = docID
			}
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return fmt.Errorf("failed to encode bulk action: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(doc); err != nil {
			return fmt.Errorf("failed to encode bulk document: %w", err)
		}
	}

	res, err := s.client.Bulk(bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithIndex(s.index),
		s.client.Bulk.WithRefresh("true"))
	if err != nil {
		return fmt.Errorf("bulk upsert failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk upsert failed: %s", res.String())
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Error *struct {
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		for _, item := range bulkResp.Items {
			for _, op := range item {
				if op.Error != nil {
					return fmt.Errorf("bulk upsert item failed: %s", op.Error.Reason)
				}
			}
		}
		return fmt.Errorf("bulk upsert reported errors")
	}
	return nil
}

// buildKNNQuery 构造 kNN 查询体，过滤条件编译为 term 子句
func buildKNNQuery(vector []float64, topK int, filter Filter) map[string]interface{} {
	knn := map[string]interface{}{
		"field":          "embedding",
		"query_vector":   vector,
		"k":              topK,
		"num_candidates": topK * 10,
	}
	if len(filter) > 0 {
		var terms []map[string]interface{}
		for field, value := range filter {
			terms = append(terms, map[string]interface{}{
				"term": map[string]interface{}{field: value},
			})
		}
		knn["filter"] = map[string]interface{}{
			"bool": map[string]interface{}{"filter": terms},
		}
	}
	return map[string]interface{}{
		"knn":     knn,
		"size":    topK,
		"_source": []string{"metadata"},
	}
}

// Query kNN 相似度查询
func (s *ES8Store) Query(ctx context.Context, vector []float64, topK int, filter Filter) ([]Match, error) {
	body, err := json.Marshal(buildKNNQuery(vector, topK, filter))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal knn query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)))
	if err != nil {
		return nil, fmt.Errorf("knn search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("knn search failed: %s", res.String())
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source struct {
					Metadata map[string]interface{} `json:"metadata"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	matches := make([]Match, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		matches = append(matches, Match{
			ID:       hit.ID,
			Score:    hit.Score,
			Metadata: hit.Source.Metadata,
		})
	}
	return matches, nil
}

// DeleteByFilter 按过滤条件 delete_by_query
func (s *ES8Store) DeleteByFilter(ctx context.Context, filter Filter) error {
	if len(filter) == 0 {
		return fmt.Errorf("delete filter must not be empty")
	}

	var terms []map[string]interface{}
	for field, value := range filter {
		terms = append(terms, map[string]interface{}{
			"term": map[string]interface{}{field: value},
		})
	}
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": terms},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("failed to marshal delete query: %w", err)
	}

	res, err := s.client.DeleteByQuery([]string{s.index}, bytes.NewReader(body),
		s.client.DeleteByQuery.WithContext(ctx),
		s.client.DeleteByQuery.WithRefresh(true))
	if err != nil {
		return fmt.Errorf("delete by query failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("delete by query failed: %s", res.String())
	}
	io.Copy(io.Discard, res.Body)
	return nil
}
