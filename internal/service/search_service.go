package service

import (
	"context"
	"fmt"
	"strings"

	"kosmos-go/internal/config"
	"kosmos-go/internal/model"
	"kosmos-go/internal/repository"
	"kosmos-go/pkg/log"
)

// SearchService 接口定义了文档检索操作。
type SearchService interface {
	SearchDocuments(ctx context.Context, query string, collections []string, topK int, filters map[string]interface{}) ([]model.SearchResult, error)
}

type searchService struct {
	embedder        EmbeddingProvider
	searcher        VectorSearcher
	publicationRepo repository.PublicationRepository
	retrieval       config.RetrievalConfig
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(embedder EmbeddingProvider, searcher VectorSearcher, publicationRepo repository.PublicationRepository, retrieval config.RetrievalConfig) SearchService {
	return &searchService{
		embedder:        embedder,
		searcher:        searcher,
		publicationRepo: publicationRepo,
		retrieval:       retrieval,
	}
}

// SearchDocuments 执行多集合语义检索，并用文献登记库回填出处信息。
func (s *searchService) SearchDocuments(ctx context.Context, query string, collections []string, topK int, filters map[string]interface{}) ([]model.SearchResult, error) {
	log.Infof("[SearchService] 开始检索, query: '%s', topK: %d", query, topK)

	if strings.TrimSpace(query) == "" {
		return []model.SearchResult{}, nil
	}
	if len(collections) == 0 {
		collections = s.retrieval.Collections
	}
	if topK <= 0 {
		topK = s.retrieval.TopK
	}

	// 1. 向量化查询
	vector := s.embedder.Embed(ctx, query)
	if vector == nil {
		log.Warnf("[SearchService] 查询向量化失败, 返回空结果")
		return []model.SearchResult{}, nil
	}

	// 2. 多集合混合检索
	hits, err := s.searcher.HybridSearch(ctx, collections, vector, topK, filters)
	if err != nil {
		log.Errorf("[SearchService] 混合检索失败: %v", err)
		return nil, fmt.Errorf("混合检索失败: %w", err)
	}
	if len(hits) == 0 {
		log.Infof("[SearchService] 检索返回 0 条命中")
		return []model.SearchResult{}, nil
	}

	// 3. 批量查询文献登记库
	stems := make(map[string]struct{})
	for _, hit := range hits {
		stems[docIDStem(hit.ID)] = struct{}{}
	}
	stemList := make([]string, 0, len(stems))
	for stem := range stems {
		stemList = append(stemList, stem)
	}

	records, err := s.publicationRepo.FindBatchByDocIDs(stemList)
	if err != nil {
		// 登记库不可用只影响出处回填，不影响检索结果
		log.Errorf("[SearchService] 批量查询文献登记库失败: %v", err)
		records = nil
	}
	recordMap := make(map[string]*model.Publication, len(records))
	for _, record := range records {
		recordMap[record.DocID] = record
	}

	// 4. 组装最终结果
	results := make([]model.SearchResult, 0, len(hits))
	for _, hit := range hits {
		result := model.SearchResult{
			DocID:      hit.ID,
			Collection: metadataString(hit.Metadata, "collection"),
			Title:      metadataString(hit.Metadata, "title"),
			Content:    hit.Content,
			Score:      hit.Score,
			Authors:    metadataString(hit.Metadata, "authors"),
			Journal:    metadataString(hit.Metadata, "journal"),
			Year:       metadataString(hit.Metadata, "year"),
			URL:        metadataString(hit.Metadata, "url"),
		}

		if record, ok := recordMap[docIDStem(hit.ID)]; ok {
			if result.Title == "" {
				result.Title = record.Title
			}
			if result.Authors == "" {
				result.Authors = record.Authors
			}
			if result.Journal == "" {
				result.Journal = record.Journal
			}
			if result.Year == "" {
				result.Year = record.Year
			}
			if result.URL == "" {
				result.URL = record.URL
			}
		}
		if result.Title == "" {
			log.Warnf("[SearchService] 命中 '%s' 缺少标题信息", hit.ID)
			result.Title = "Unknown Title"
		}
		results = append(results, result)
	}

	log.Infof("[SearchService] 检索完成, 返回 %d 条结果", len(results))
	return results, nil
}

// docIDStem 从分块 ID "<docID>_<chunk>" 中还原源文档 ID。
func docIDStem(chunkID string) string {
	if idx := strings.LastIndex(chunkID, "_"); idx > 0 {
		return chunkID[:idx]
	}
	return chunkID
}
