package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"kosmos-go/internal/model"
	"kosmos-go/pkg/log"
)

// Search 在单个集合内执行 kNN 向量检索，可选元数据过滤。
// 返回结果按相似度降序，分数为 ES cosine 归一分，范围 [0,1]。
func (s *Store) Search(ctx context.Context, collection string, vector []float32, topK int, filters map[string]interface{}) ([]model.SearchHit, error) {
	if len(vector) == 0 {
		return nil, nil
	}

	knn := map[string]interface{}{
		"field":          "vector",
		"query_vector":   vector,
		"k":              topK,
		"num_candidates": topK * 10,
	}
	if clauses := buildFilterClauses(filters); clauses != nil {
		knn["filter"] = map[string]interface{}{
			"bool": map[string]interface{}{"filter": clauses},
		}
	}
	esQuery := map[string]interface{}{
		"knn":     knn,
		"size":    topK,
		"_source": []string{"doc_id", "title", "content", "metadata"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("序列化检索请求失败: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.indexName(collection)),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		log.Errorf("[VectorDB] 检索集合 '%s' 失败: %v", collection, err)
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		log.Errorf("[VectorDB] 检索集合 '%s' 时 Elasticsearch 返回错误: %s, body: %s", collection, res.Status(), string(body))
		return nil, fmt.Errorf("检索时 Elasticsearch 返回错误: %s", res.Status())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source esDocument `json:"_source"`
				Score  float64    `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("解析检索响应失败: %w", err)
	}

	hits := make([]model.SearchHit, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		metadata := hit.Source.Metadata
		if metadata == nil {
			metadata = make(map[string]interface{}, 1)
		}
		hits = append(hits, model.SearchHit{
			ID:       hit.Source.DocID,
			Score:    hit.Score,
			Content:  hit.Source.Content,
			Metadata: metadata,
		})
	}
	return hits, nil
}

// HybridSearch 并发检索多个集合并合并结果。
// 单个集合失败只记录日志并跳过，不影响其余集合；合并结果按分数
// 稳定降序排序后截断到 topK，每条命中会标注来源集合。
func (s *Store) HybridSearch(ctx context.Context, collections []string, vector []float32, topK int, filters map[string]interface{}) ([]model.SearchHit, error) {
	if len(vector) == 0 || len(collections) == 0 {
		return nil, nil
	}

	// 每个集合占一个固定槽位，保证合并顺序与集合顺序一致
	slots := make([][]model.SearchHit, len(collections))
	var wg sync.WaitGroup
	for i, collection := range collections {
		wg.Add(1)
		go func(slot int, name string) {
			defer wg.Done()
			hits, err := s.Search(ctx, name, vector, topK, filters)
			if err != nil {
				log.Warnf("[VectorDB] 集合 '%s' 检索失败, 已跳过: %v", name, err)
				return
			}
			for j := range hits {
				hits[j].Metadata["collection"] = name
			}
			slots[slot] = hits
		}(i, collection)
	}
	wg.Wait()

	return mergeHits(slots, topK), nil
}

// mergeHits 按槽位顺序拼接后稳定降序排序并截断。
// 同分命中的相对顺序由集合顺序与集合内顺序决定，结果确定。
func mergeHits(slots [][]model.SearchHit, topK int) []model.SearchHit {
	var merged []model.SearchHit
	for _, hits := range slots {
		merged = append(merged, hits...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if topK > 0 && len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}
