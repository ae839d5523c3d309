package entity

import (
	"context"

	"kosmos-go/internal/model"
	"kosmos-go/pkg/log"
)

// CompositeExtractor 组合模式抽取与模型抽取：模型可用时合并两者结果，
// 模型失败时退回纯模式抽取，保证抽取能力始终在线。
type CompositeExtractor struct {
	pattern Extractor
	model   Extractor
}

// NewCompositeExtractor 创建组合抽取器，model 传 nil 时退化为纯模式抽取。
func NewCompositeExtractor(pattern, model Extractor) *CompositeExtractor {
	return &CompositeExtractor{pattern: pattern, model: model}
}

// Extract 执行组合抽取。列表类别取两者并集并排序，单值类别以模型结果优先。
func (e *CompositeExtractor) Extract(ctx context.Context, text string) (model.Entities, error) {
	base, err := e.pattern.Extract(ctx, text)
	if err != nil {
		return model.Entities{}, err
	}
	if e.model == nil {
		return base, nil
	}

	enriched, err := e.model.Extract(ctx, text)
	if err != nil {
		log.Warnf("[Entity] 模型抽取失败，退回模式抽取: %v", err)
		return base, nil
	}
	return mergeEntities(base, enriched), nil
}

func mergeEntities(base, enriched model.Entities) model.Entities {
	merged := model.Entities{
		Organisms: mergeLists(base.Organisms, enriched.Organisms),
		Tissues:   mergeLists(base.Tissues, enriched.Tissues),
		Genes:     mergeLists(base.Genes, enriched.Genes),
		Proteins:  mergeLists(base.Proteins, enriched.Proteins),
		Missions:  mergeLists(base.Missions, enriched.Missions),
		Keywords:  mergeLists(base.Keywords, enriched.Keywords),
	}
	merged.GravityCondition = firstNonEmpty(enriched.GravityCondition, base.GravityCondition)
	merged.StudyType = firstNonEmpty(enriched.StudyType, base.StudyType)
	return merged
}

func mergeLists(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	for _, v := range b {
		seen[v] = struct{}{}
	}
	return sortedKeys(seen)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
