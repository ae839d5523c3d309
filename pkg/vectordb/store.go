// Package vectordb 提供基于 Elasticsearch dense_vector 的向量存储能力。
//
// 每个逻辑集合映射为一个带统一前缀的索引，索引在首次写入时惰性创建。
package vectordb

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"golang.org/x/time/rate"

	"kosmos-go/internal/config"
	"kosmos-go/pkg/log"
)

// Store 封装了对 Elasticsearch 向量索引的全部操作。
type Store struct {
	client  *elasticsearch.Client
	prefix  string
	dims    int
	limiter *rate.Limiter

	mu      sync.Mutex
	ensured map[string]bool
}

// NewStore 创建向量存储。dims 为向量维度，insertIntervalMS 控制批量写入间隔。
func NewStore(cfg config.ElasticsearchConfig, dims, insertIntervalMS int) (*Store, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Addresses},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Elasticsearch 客户端失败: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if insertIntervalMS > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Duration(insertIntervalMS)*time.Millisecond), 1)
	}

	return &Store{
		client:  client,
		prefix:  cfg.IndexPrefix,
		dims:    dims,
		limiter: limiter,
		ensured: make(map[string]bool),
	}, nil
}

// indexName 将逻辑集合名映射为带前缀的索引名。
func (s *Store) indexName(collection string) string {
	return s.prefix + "-" + collection
}

// collectionName 从索引名还原逻辑集合名。
func (s *Store) collectionName(index string) string {
	return strings.TrimPrefix(index, s.prefix+"-")
}

func (s *Store) mapping() string {
	return fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"doc_id":  { "type": "keyword" },
				"title":   { "type": "text" },
				"content": { "type": "text" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"metadata": {
					"properties": {
						"collection":        { "type": "keyword" },
						"title":             { "type": "keyword" },
						"authors":           { "type": "keyword" },
						"journal":           { "type": "keyword" },
						"year":              { "type": "keyword" },
						"url":               { "type": "keyword" },
						"source_type":       { "type": "keyword" },
						"chunk_index":       { "type": "keyword" },
						"organisms":         { "type": "keyword" },
						"tissues":           { "type": "keyword" },
						"genes":             { "type": "keyword" },
						"proteins":          { "type": "keyword" },
						"missions":          { "type": "keyword" },
						"keywords":          { "type": "keyword" },
						"gravity_condition": { "type": "keyword" },
						"study_type":        { "type": "keyword" }
					}
				}
			}
		}
	}`, s.dims)
}

// CreateCollection 创建集合对应的索引，已存在时直接返回成功。
func (s *Store) CreateCollection(collection string) error {
	index := s.indexName(collection)

	res, err := s.client.Indices.Exists([]string{index})
	if err != nil {
		log.Errorf("[VectorDB] 检查索引 '%s' 是否存在时出错: %v", index, err)
		return fmt.Errorf("检查索引是否存在失败: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引 '%s' 时收到意外的状态码: %d", index, res.StatusCode)
	}

	createRes, err := s.client.Indices.Create(
		index,
		s.client.Indices.Create.WithBody(strings.NewReader(s.mapping())),
	)
	if err != nil {
		log.Errorf("[VectorDB] 创建索引 '%s' 失败: %v", index, err)
		return fmt.Errorf("创建索引失败: %w", err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		log.Errorf("[VectorDB] 创建索引 '%s' 时 Elasticsearch 返回错误: %s", index, createRes.String())
		return fmt.Errorf("创建索引时 Elasticsearch 返回错误: %s", createRes.Status())
	}

	log.Infof("[VectorDB] 索引 '%s' 创建成功", index)
	return nil
}

// DeleteCollection 删除集合对应的索引，索引不存在视为成功。
func (s *Store) DeleteCollection(collection string) error {
	index := s.indexName(collection)

	res, err := s.client.Indices.Delete([]string{index})
	if err != nil {
		return fmt.Errorf("删除索引 '%s' 失败: %w", index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("删除索引 '%s' 时 Elasticsearch 返回错误: %s", index, res.Status())
	}

	s.mu.Lock()
	delete(s.ensured, collection)
	s.mu.Unlock()
	log.Infof("[VectorDB] 索引 '%s' 已删除", index)
	return nil
}

// ensureCollection 保证集合索引已创建，结果按进程生命周期缓存。
func (s *Store) ensureCollection(collection string) error {
	s.mu.Lock()
	if s.ensured[collection] {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.CreateCollection(collection); err != nil {
		return err
	}

	s.mu.Lock()
	s.ensured[collection] = true
	s.mu.Unlock()
	return nil
}

// ListCollections 列出当前前缀下的所有集合名。
func (s *Store) ListCollections() ([]string, error) {
	res, err := s.client.Indices.Get([]string{s.prefix + "-*"})
	if err != nil {
		return nil, fmt.Errorf("列出索引失败: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("列出索引时 Elasticsearch 返回错误: %s", res.Status())
	}

	var indices map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&indices); err != nil {
		return nil, fmt.Errorf("解析索引列表失败: %w", err)
	}

	collections := make([]string, 0, len(indices))
	for index := range indices {
		collections = append(collections, s.collectionName(index))
	}
	return collections, nil
}

// CollectionStats 返回集合的文档数。
func (s *Store) CollectionStats(collection string) (int64, error) {
	res, err := s.client.Count(
		s.client.Count.WithIndex(s.indexName(collection)),
	)
	if err != nil {
		return 0, fmt.Errorf("统计索引文档数失败: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return 0, fmt.Errorf("统计索引文档数时 Elasticsearch 返回错误: %s, body: %s", res.Status(), string(body))
	}

	var countResp struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&countResp); err != nil {
		return 0, fmt.Errorf("解析文档数响应失败: %w", err)
	}
	return countResp.Count, nil
}

// HealthCheck 检查 Elasticsearch 是否可达。
func (s *Store) HealthCheck() bool {
	_, err := s.ListCollections()
	return err == nil
}
