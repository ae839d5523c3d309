package model

// DocumentIngestTask 是通过 Kafka 下发的文档摄取任务。
// ObjectKey 指向 MinIO 中的原始文本对象。
type DocumentIngestTask struct {
	DocID      string `json:"doc_id"`
	Collection string `json:"collection"`
	ObjectKey  string `json:"object_key"`
	Title      string `json:"title"`
	Authors    string `json:"authors"`
	Journal    string `json:"journal"`
	Year       string `json:"year"`
	URL        string `json:"url"`
	SourceType string `json:"source_type"`
}
