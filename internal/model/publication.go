package model

import "time"

// 摄取状态。
const (
	IngestStatusPending = 0
	IngestStatusIndexed = 1
	IngestStatusFailed  = 2
)

// Publication 是 MySQL 中的文献登记记录。
// 摄取管线写入，检索侧用它补全命中结果缺失的展示元数据。
type Publication struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocID      string    `gorm:"uniqueIndex;size:128;not null" json:"docId"`
	Collection string    `gorm:"size:64;index" json:"collection"`
	Title      string    `gorm:"size:512" json:"title"`
	Authors    string    `gorm:"size:1024" json:"authors"`
	Journal    string    `gorm:"size:256" json:"journal"`
	Year       string    `gorm:"size:16" json:"year"`
	URL        string    `gorm:"size:512" json:"url"`
	SourceType string    `gorm:"size:64" json:"sourceType"`
	ChunkCount int       `json:"chunkCount"`
	Status     int       `gorm:"index" json:"status"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Publication) TableName() string {
	return "publications"
}
