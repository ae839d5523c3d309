// Package entity 从自由文本中抽取领域实体（物种、组织、任务等）。
//
// PatternExtractor 基于正则始终可用；ModelExtractor 封装可选的外部 NLP
// 服务；CompositeExtractor 在模型可用时合并两者结果，不可用时自动退回
// 纯模式抽取。
package entity

import (
	"context"

	"kosmos-go/internal/model"
)

// Extractor 定义了实体抽取能力。
type Extractor interface {
	Extract(ctx context.Context, text string) (model.Entities, error)
}

// EntityTypes 返回支持的实体类别名。
func EntityTypes() []string {
	return []string{"organisms", "tissues", "genes", "proteins", "missions", "keywords"}
}
