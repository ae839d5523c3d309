package service

import (
	"regexp"
	"sort"
	"strings"

	"kosmos-go/internal/config"
	"kosmos-go/internal/model"
)

var (
	reHTMLTag    = regexp.MustCompile(`<[^>]+>`)
	reExtraBlank = regexp.MustCompile(`\n{3,}`)
)

// PostProcessor 负责对模型回答做清洗与人设校验，并整理引用来源。
type PostProcessor struct {
	prompt config.PromptConfig
}

// NewPostProcessor 创建回答后处理器。
func NewPostProcessor(prompt config.PromptConfig) *PostProcessor {
	return &PostProcessor{prompt: prompt}
}

// CleanResponse 去除回答中的标记残留并归一空行。幂等：重复处理结果不变。
func (p *PostProcessor) CleanResponse(response string) string {
	response = reHTMLTag.ReplaceAllString(response, "")
	response = reExtraBlank.ReplaceAllString(response, "\n\n")
	return strings.TrimSpace(response)
}

// EnsurePersona 检查回答开头是否保持助手身份，缺失时补写开场白。
func (p *PostProcessor) EnsurePersona(response string) string {
	if response == "" {
		return response
	}
	marker := p.prompt.IdentityMarker
	if marker == "" {
		return response
	}

	head := response
	if len(head) > 300 {
		head = head[:300]
	}
	if strings.Contains(head, marker) {
		return response
	}
	return p.prompt.Preamble + "\n\n" + response
}

// ExtractSources 从检索命中构建来源列表，保持命中顺序。
func (p *PostProcessor) ExtractSources(hits []model.SearchHit) []model.Source {
	sources := make([]model.Source, 0, len(hits))
	for _, hit := range hits {
		authors := metadataString(hit.Metadata, "authors")
		if authors == "" {
			authors = "Unknown Authors"
		}

		sources = append(sources, model.Source{
			Title:   metadataString(hit.Metadata, "title"),
			Authors: authors,
			Journal: metadataString(hit.Metadata, "journal"),
			Year:    metadataString(hit.Metadata, "year"),
			URL:     metadataString(hit.Metadata, "url"),
			Score:   hit.Score,
		})
	}
	return sources
}

// DedupeSources 按标题去重来源：同名保留分数最高的一条，同分保留先出现的。
// 无标题或占位标题的来源被丢弃。结果按分数稳定降序排列。
func (p *PostProcessor) DedupeSources(sources []model.Source) []model.Source {
	best := make(map[string]model.Source)
	var order []string
	for _, source := range sources {
		key := strings.ToLower(strings.TrimSpace(source.Title))
		if key == "" || key == "unknown title" {
			continue
		}
		existing, ok := best[key]
		if !ok {
			best[key] = source
			order = append(order, key)
			continue
		}
		if source.Score > existing.Score {
			best[key] = source
		}
	}

	deduped := make([]model.Source, 0, len(order))
	for _, key := range order {
		deduped = append(deduped, best[key])
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Score > deduped[j].Score
	})
	return deduped
}
