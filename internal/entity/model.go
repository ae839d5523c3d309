package entity

import (
	"context"
	"fmt"

	"kosmos-go/internal/model"
)

// NERClient 抽象出外部实体识别服务的调用接口。
type NERClient interface {
	ExtractEntities(ctx context.Context, text string) (map[string][]string, error)
}

// ModelExtractor 调用外部 NLP 服务抽取实体，服务不可用时返回错误。
type ModelExtractor struct {
	client NERClient
}

// NewModelExtractor 创建一个模型抽取器。
func NewModelExtractor(client NERClient) *ModelExtractor {
	return &ModelExtractor{client: client}
}

// Extract 调用 NER 服务并把分组结果映射到实体结构。
func (e *ModelExtractor) Extract(ctx context.Context, text string) (model.Entities, error) {
	if text == "" {
		return model.Entities{}, nil
	}
	grouped, err := e.client.ExtractEntities(ctx, text)
	if err != nil {
		return model.Entities{}, fmt.Errorf("模型实体抽取失败: %w", err)
	}

	entities := model.Entities{
		Organisms: dedupSorted(grouped["organisms"]),
		Tissues:   dedupSorted(grouped["tissues"]),
		Genes:     dedupSorted(grouped["genes"]),
		Proteins:  dedupSorted(grouped["proteins"]),
		Missions:  dedupSorted(grouped["missions"]),
		Keywords:  dedupSorted(grouped["keywords"]),
	}
	if v := grouped["gravity_condition"]; len(v) > 0 {
		entities.GravityCondition = v[0]
	}
	if v := grouped["study_type"]; len(v) > 0 {
		entities.StudyType = v[0]
	}
	return entities, nil
}

func dedupSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	return sortedKeys(seen)
}
