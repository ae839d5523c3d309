package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"kosmos-go/internal/model"
	"kosmos-go/pkg/log"
)

// esDocument 是写入 Elasticsearch 的文档结构。
// 列表型元数据以字符串数组写入 keyword 字段，过滤时按成员匹配。
type esDocument struct {
	DocID    string                 `json:"doc_id"`
	Title    string                 `json:"title"`
	Content  string                 `json:"content"`
	Vector   []float32              `json:"vector,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Insert 批量写入向量记录。无向量的记录跳过并告警，不中断整批。
// 写入通过 Bulk API 完成，受限速器控制节奏。
func (s *Store) Insert(ctx context.Context, collection string, records []model.VectorRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := s.ensureCollection(collection); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	inserted := 0
	for _, record := range records {
		if len(record.Vector) == 0 {
			log.Warnf("[VectorDB] 记录 '%s' 缺少向量, 已跳过", record.DocID)
			continue
		}

		action := map[string]interface{}{
			"index": map[string]interface{}{"_id": record.DocID},
		}
		actionBytes, err := json.Marshal(action)
		if err != nil {
			return inserted, fmt.Errorf("序列化 bulk 操作失败: %w", err)
		}
		docBytes, err := json.Marshal(esDocument{
			DocID:    record.DocID,
			Title:    record.Title,
			Content:  record.Content,
			Vector:   record.Vector,
			Metadata: record.Metadata,
		})
		if err != nil {
			return inserted, fmt.Errorf("序列化文档 '%s' 失败: %w", record.DocID, err)
		}

		buf.Write(actionBytes)
		buf.WriteByte('\n')
		buf.Write(docBytes)
		buf.WriteByte('\n')
		inserted++
	}
	if inserted == 0 {
		return 0, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	res, err := s.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithIndex(s.indexName(collection)),
		s.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		log.Errorf("[VectorDB] 批量写入索引 '%s' 失败: %v", s.indexName(collection), err)
		return 0, fmt.Errorf("批量写入失败: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("[VectorDB] 批量写入时 Elasticsearch 返回错误: %s", res.String())
		return 0, fmt.Errorf("批量写入时 Elasticsearch 返回错误: %s", res.Status())
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  *struct {
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return 0, fmt.Errorf("解析 bulk 响应失败: %w", err)
	}
	if bulkResp.Errors {
		failed := 0
		for _, item := range bulkResp.Items {
			for _, result := range item {
				if result.Status >= 300 {
					failed++
					if result.Error != nil {
						log.Warnf("[VectorDB] 文档写入失败: %s", result.Error.Reason)
					}
				}
			}
		}
		inserted -= failed
	}

	log.Infof("[VectorDB] 成功写入 %d 条记录到索引 '%s'", inserted, s.indexName(collection))
	return inserted, nil
}

// GetDocument 按 ID 获取文档，不存在时返回 nil。
func (s *Store) GetDocument(ctx context.Context, collection, id string) (*model.Document, error) {
	req := esapi.GetRequest{Index: s.indexName(collection), DocumentID: id}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("获取文档 '%s' 失败: %w", id, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("获取文档 '%s' 时 Elasticsearch 返回错误: %s", id, res.Status())
	}

	var getResp struct {
		Source esDocument `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&getResp); err != nil {
		return nil, fmt.Errorf("解析文档响应失败: %w", err)
	}

	return &model.Document{
		ID:       id,
		Title:    getResp.Source.Title,
		Content:  getResp.Source.Content,
		Metadata: getResp.Source.Metadata,
	}, nil
}

// DeleteDocument 按 ID 删除单个文档，文档不存在视为成功。
func (s *Store) DeleteDocument(ctx context.Context, collection, id string) error {
	req := esapi.DeleteRequest{Index: s.indexName(collection), DocumentID: id, Refresh: "true"}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("删除文档 '%s' 失败: %w", id, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("删除文档 '%s' 时 Elasticsearch 返回错误: %s", id, res.Status())
	}
	return nil
}

// DeleteByDocID 删除某个源文档的全部分块，用于重建前清理旧数据。
// 分块 ID 的形式为 "<docID>_<chunk>"，同时兼容未分块的整篇文档。
func (s *Store) DeleteByDocID(ctx context.Context, collection, docID string) error {
	query := fmt.Sprintf(`{"query":{"bool":{"should":[{"term":{"doc_id":%q}},{"prefix":{"doc_id":%q}}],"minimum_should_match":1}}}`, docID, docID+"_")
	res, err := s.client.DeleteByQuery(
		[]string{s.indexName(collection)},
		strings.NewReader(query),
		s.client.DeleteByQuery.WithContext(ctx),
		s.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("按 doc_id 删除失败: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("按 doc_id 删除时 Elasticsearch 返回错误: %s", res.Status())
	}
	return nil
}
