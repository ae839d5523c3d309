// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kosmos-go/internal/model"
)

// PublicationRepository 接口定义了文献登记库的持久化操作。
type PublicationRepository interface {
	Upsert(record *model.Publication) error
	FindByDocID(docID string) (*model.Publication, error)
	FindBatchByDocIDs(docIDs []string) ([]*model.Publication, error)
	UpdateStatus(docID string, status int, chunkCount int) error
	ListByCollection(collection string, limit, offset int) ([]*model.Publication, error)
	DeleteByDocID(docID string) error
}

// publicationRepository 是 PublicationRepository 接口的 GORM 实现。
type publicationRepository struct {
	db *gorm.DB
}

// NewPublicationRepository 创建一个新的 PublicationRepository 实例。
func NewPublicationRepository(db *gorm.DB) PublicationRepository {
	return &publicationRepository{db: db}
}

// Upsert 按 doc_id 写入或更新一条文献登记记录。
func (r *publicationRepository) Upsert(record *model.Publication) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "doc_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"collection", "title", "authors", "journal", "year",
			"url", "source_type", "chunk_count", "status", "updated_at",
		}),
	}).Create(record).Error
}

// FindByDocID 根据 doc_id 查找文献记录，不存在时返回 gorm.ErrRecordNotFound。
func (r *publicationRepository) FindByDocID(docID string) (*model.Publication, error) {
	var record model.Publication
	if err := r.db.Where("doc_id = ?", docID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindBatchByDocIDs 批量查找文献记录，用于检索结果的元数据回填。
func (r *publicationRepository) FindBatchByDocIDs(docIDs []string) ([]*model.Publication, error) {
	var records []*model.Publication
	if len(docIDs) == 0 {
		return records, nil
	}
	err := r.db.Where("doc_id IN ?", docIDs).Find(&records).Error
	return records, err
}

// UpdateStatus 更新文献的摄取状态与分块数。
func (r *publicationRepository) UpdateStatus(docID string, status int, chunkCount int) error {
	return r.db.Model(&model.Publication{}).
		Where("doc_id = ?", docID).
		Updates(map[string]interface{}{"status": status, "chunk_count": chunkCount}).Error
}

// ListByCollection 分页列出某个集合下的文献记录。
func (r *publicationRepository) ListByCollection(collection string, limit, offset int) ([]*model.Publication, error) {
	var records []*model.Publication
	err := r.db.Where("collection = ?", collection).
		Order("updated_at desc").
		Limit(limit).Offset(offset).
		Find(&records).Error
	return records, err
}

// DeleteByDocID 删除一条文献登记记录。
func (r *publicationRepository) DeleteByDocID(docID string) error {
	return r.db.Where("doc_id = ?", docID).Delete(&model.Publication{}).Error
}
