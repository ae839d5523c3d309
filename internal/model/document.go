// Package model 包含了应用的数据模型定义。
package model

// 对话消息角色。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Document 代表一篇待索引或已索引的文档（或其分块）。
// 由摄取管线创建，进入向量库后对检索侧只读。
type Document struct {
	ID        string                 `json:"id"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata"`
	Embedding []float32              `json:"embedding,omitempty"`
}

// SearchHit 是向量库返回的单条命中结果，按请求生成、不持久化。
// Score 为相似度，范围 [0,1]，越大越相似。
type SearchHit struct {
	ID       string                 `json:"id"`
	Score    float64                `json:"score"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Source 是 SearchHit 面向展示的引用渲染。
// 同一次响应内 Title（忽略大小写、去首尾空白）唯一。
type Source struct {
	Title   string  `json:"title"`
	Authors string  `json:"authors"`
	Journal string  `json:"journal"`
	Year    string  `json:"year"`
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
}

// SearchResult 是搜索接口面向展示的命中结构，
// 已用文献登记库的信息回填了标题与出处。
type SearchResult struct {
	DocID      string  `json:"doc_id"`
	Collection string  `json:"collection"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	Authors    string  `json:"authors,omitempty"`
	Journal    string  `json:"journal,omitempty"`
	Year       string  `json:"year,omitempty"`
	URL        string  `json:"url,omitempty"`
}

// ConversationMessage 代表一条对话消息，由调用方持有并以只读方式传入管线。
type ConversationMessage struct {
	Role    string   `json:"role"` // "user" 或 "assistant"
	Content string   `json:"content"`
	Sources []Source `json:"sources,omitempty"`
}

// ChatResult 是 Chat 入口的统一返回结构。
// 管线内部任何失败都会被转换为 Success=false 的完整结构，而不是向上抛出。
type ChatResult struct {
	Response   string   `json:"response"`
	Sources    []Source `json:"sources"`
	Query      string   `json:"query"`
	NumSources int      `json:"num_sources"`
	Success    bool     `json:"success"`
}
