// Package service 包含了应用的业务逻辑层。
package service

import (
	"fmt"
	"strings"

	"kosmos-go/internal/config"
	"kosmos-go/internal/model"
	"kosmos-go/pkg/log"
)

// QueryEnhancer 根据最近的对话历史为查询补充领域上下文词。
// 补充词来自固定词表并按词表顺序选取，同一输入的增强结果恒定。
type QueryEnhancer struct {
	keywords []string
	window   int
	maxTerms int
}

// NewQueryEnhancer 创建查询增强器。
func NewQueryEnhancer(cfg config.RetrievalConfig) *QueryEnhancer {
	return &QueryEnhancer{
		keywords: cfg.Keywords,
		window:   cfg.HistoryWindow,
		maxTerms: cfg.ContextTermsMax,
	}
}

// Enhance 在查询后追加历史中出现过的领域词。
// 只考察最近 window 条历史中的用户消息；已出现在查询里的词不重复补充。
func (e *QueryEnhancer) Enhance(query string, history []model.ConversationMessage) string {
	if query == "" || len(history) == 0 || e.maxTerms <= 0 {
		return query
	}

	recent := history
	if e.window > 0 && len(recent) > e.window {
		recent = recent[len(recent)-e.window:]
	}

	var historyText strings.Builder
	for _, msg := range recent {
		if msg.Role == model.RoleUser {
			historyText.WriteString(strings.ToLower(msg.Content))
			historyText.WriteString(" ")
		}
	}
	if historyText.Len() == 0 {
		return query
	}

	queryLower := strings.ToLower(query)
	historyLower := historyText.String()

	// 按词表顺序选取，保证结果确定
	var terms []string
	for _, keyword := range e.keywords {
		if len(terms) >= e.maxTerms {
			break
		}
		if strings.Contains(queryLower, keyword) {
			continue
		}
		if strings.Contains(historyLower, keyword) {
			terms = append(terms, keyword)
		}
	}
	if len(terms) == 0 {
		return query
	}

	enhanced := fmt.Sprintf("%s (related to: %s)", query, strings.Join(terms, ", "))
	log.Infof("[QueryEnhancer] 查询增强: '%s' -> '%s'", query, enhanced)
	return enhanced
}
