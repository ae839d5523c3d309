package model

// VectorRecord 定义了存储在 Elasticsearch 索引中的文档结构。
// Metadata 在写入前已被摄取侧压平（见 vectordb.FlattenMetadata）：
// 标量为字符串，列表型字段为字符串数组，对应索引中的 keyword 数组。
type VectorRecord struct {
	DocID    string                 `json:"doc_id"`
	Title    string                 `json:"title"`
	Content  string                 `json:"content"`
	Vector   []float32              `json:"vector"`
	Metadata map[string]interface{} `json:"metadata"`
}
