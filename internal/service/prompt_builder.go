package service

import (
	"fmt"
	"strings"

	"kosmos-go/internal/config"
	"kosmos-go/internal/model"
	"kosmos-go/pkg/llm"
)

// PromptBuilder 负责把检索结果与对话历史组装成提示词。
type PromptBuilder struct {
	prompt    config.PromptConfig
	retrieval config.RetrievalConfig
}

// NewPromptBuilder 创建提示词构建器。
func NewPromptBuilder(prompt config.PromptConfig, retrieval config.RetrievalConfig) *PromptBuilder {
	return &PromptBuilder{prompt: prompt, retrieval: retrieval}
}

// FormatContext 把检索命中格式化为带编号引用的上下文文本。
// 无命中时返回固定的占位文本，供模型识别"无依据"场景。
func (b *PromptBuilder) FormatContext(hits []model.SearchHit) string {
	if len(hits) == 0 {
		return b.prompt.NoResultText
	}

	var builder strings.Builder
	for i, hit := range hits {
		title := metadataString(hit.Metadata, "title")
		if title == "" {
			title = "Unknown Title"
		}

		snippet := hit.Content
		if b.retrieval.SnippetLen > 0 && len(snippet) > b.retrieval.SnippetLen {
			snippet = snippet[:b.retrieval.SnippetLen] + "..."
		}

		builder.WriteString(fmt.Sprintf("**Document %d** (Reference ID: DOC-%03d)\n", i+1, i+1))
		builder.WriteString(fmt.Sprintf("Title: %s\n", title))
		builder.WriteString(fmt.Sprintf("Relevance Score: %.3f\n", hit.Score))
		builder.WriteString(fmt.Sprintf("Content: %s\n\n", snippet))
	}
	return builder.String()
}

// BuildPrompt 组装完整的单轮生成提示词：人设、上下文、近期历史与引用规范。
func (b *PromptBuilder) BuildPrompt(query, contextText string, history []model.ConversationMessage) string {
	var builder strings.Builder
	builder.WriteString(b.prompt.Persona)
	builder.WriteString("\n\n")

	builder.WriteString("RETRIEVED CONTEXT:\n")
	builder.WriteString(contextText)
	builder.WriteString("\n")

	if historyText := b.formatHistory(history); historyText != "" {
		builder.WriteString("RECENT CONVERSATION:\n")
		builder.WriteString(historyText)
		builder.WriteString("\n")
	}

	builder.WriteString(fmt.Sprintf("USER QUESTION: %s\n\n", query))
	builder.WriteString(b.prompt.Guidelines)
	return builder.String()
}

// SystemMessage 组装流式对话使用的 system 消息（人设 + 上下文 + 引用规范）。
func (b *PromptBuilder) SystemMessage(contextText string) string {
	var builder strings.Builder
	builder.WriteString(b.prompt.Persona)
	builder.WriteString("\n\nRETRIEVED CONTEXT:\n")
	builder.WriteString(contextText)
	builder.WriteString("\n")
	builder.WriteString(b.prompt.Guidelines)
	return builder.String()
}

// ComposeMessages 把 system 消息、裁剪后的历史与当前问题组装为角色消息序列。
func (b *PromptBuilder) ComposeMessages(systemMsg string, history []model.ConversationMessage, query string) []llm.Message {
	recent := b.trimHistory(history)

	messages := make([]llm.Message, 0, len(recent)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemMsg})
	for _, msg := range recent {
		messages = append(messages, llm.Message{Role: msg.Role, Content: capContent(msg.Content, b.retrieval.HistoryCharCap)})
	}
	messages = append(messages, llm.Message{Role: model.RoleUser, Content: query})
	return messages
}

// formatHistory 把裁剪后的历史渲染为文本。
func (b *PromptBuilder) formatHistory(history []model.ConversationMessage) string {
	recent := b.trimHistory(history)
	if len(recent) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, msg := range recent {
		role := "User"
		if msg.Role == model.RoleAssistant {
			role = "Assistant"
		}
		builder.WriteString(fmt.Sprintf("%s: %s\n", role, capContent(msg.Content, b.retrieval.HistoryCharCap)))
	}
	return builder.String()
}

func (b *PromptBuilder) trimHistory(history []model.ConversationMessage) []model.ConversationMessage {
	if b.retrieval.HistoryWindow > 0 && len(history) > b.retrieval.HistoryWindow {
		return history[len(history)-b.retrieval.HistoryWindow:]
	}
	return history
}

func capContent(content string, limit int) string {
	if limit > 0 && len(content) > limit {
		return content[:limit] + "..."
	}
	return content
}

func metadataString(metadata map[string]interface{}, key string) string {
	if metadata == nil {
		return ""
	}
	if value, ok := metadata[key].(string); ok {
		return value
	}
	return ""
}
