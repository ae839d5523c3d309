package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kosmos-go/internal/model"
	"kosmos-go/internal/repository"
	"kosmos-go/pkg/kafka"
	"kosmos-go/pkg/log"
	"kosmos-go/pkg/storage"
	"kosmos-go/pkg/vectordb"
)

// AdminHandler 负责集合管理与文档摄取的管理接口。
type AdminHandler struct {
	vectorStore     *vectordb.Store
	objectStore     *storage.ObjectStore
	producer        *kafka.Producer
	publicationRepo repository.PublicationRepository
}

// NewAdminHandler 创建一个新的 AdminHandler。
func NewAdminHandler(vectorStore *vectordb.Store, objectStore *storage.ObjectStore, producer *kafka.Producer, publicationRepo repository.PublicationRepository) *AdminHandler {
	return &AdminHandler{
		vectorStore:     vectorStore,
		objectStore:     objectStore,
		producer:        producer,
		publicationRepo: publicationRepo,
	}
}

type createCollectionRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateCollection 创建一个向量集合，已存在时同样返回成功。
func (h *AdminHandler) CreateCollection(c *gin.Context) {
	var req createCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求参数", "data": nil})
		return
	}

	if err := h.vectorStore.CreateCollection(req.Name); err != nil {
		log.Errorf("[AdminHandler] 创建集合失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "创建集合失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"name": req.Name}})
}

// DeleteCollection 删除一个向量集合，不存在时同样返回成功。
func (h *AdminHandler) DeleteCollection(c *gin.Context) {
	name := c.Param("name")
	if err := h.vectorStore.DeleteCollection(name); err != nil {
		log.Errorf("[AdminHandler] 删除集合失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "删除集合失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"name": name}})
}

// ListCollections 列出全部集合及各自的文档数。
func (h *AdminHandler) ListCollections(c *gin.Context) {
	collections, err := h.vectorStore.ListCollections()
	if err != nil {
		log.Errorf("[AdminHandler] 列出集合失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "列出集合失败", "data": nil})
		return
	}

	stats := make([]gin.H, 0, len(collections))
	for _, name := range collections {
		count, err := h.vectorStore.CollectionStats(name)
		if err != nil {
			log.Warnf("[AdminHandler] 获取集合 '%s' 统计失败: %v", name, err)
			count = -1
		}
		stats = append(stats, gin.H{"name": name, "count": count})
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"collections": stats}})
}

type ingestRequest struct {
	DocID      string `json:"doc_id" binding:"required"`
	Collection string `json:"collection" binding:"required"`
	ObjectKey  string `json:"object_key"`
	Content    string `json:"content"`
	Title      string `json:"title"`
	Authors    string `json:"authors"`
	Journal    string `json:"journal"`
	Year       string `json:"year"`
	URL        string `json:"url"`
	SourceType string `json:"source_type"`
}

// IngestDocument 接收一篇文档并投递摄取任务。
// 直接提供 content 时先写入对象存储，再下发 Kafka 任务异步处理。
func (h *AdminHandler) IngestDocument(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求参数", "data": nil})
		return
	}
	if req.ObjectKey == "" && strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "object_key 与 content 至少提供一个", "data": nil})
		return
	}

	ctx := c.Request.Context()
	objectKey := req.ObjectKey
	if objectKey == "" {
		objectKey = fmt.Sprintf("corpus/%s/%s.txt", req.Collection, req.DocID)
		if err := h.objectStore.PutObjectText(ctx, objectKey, req.Content); err != nil {
			log.Errorf("[AdminHandler] 上传文档内容失败: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "上传文档内容失败", "data": nil})
			return
		}
	}

	task := model.DocumentIngestTask{
		DocID:      req.DocID,
		Collection: req.Collection,
		ObjectKey:  objectKey,
		Title:      req.Title,
		Authors:    req.Authors,
		Journal:    req.Journal,
		Year:       req.Year,
		URL:        req.URL,
		SourceType: req.SourceType,
	}
	if err := h.producer.ProduceIngestTask(ctx, task); err != nil {
		log.Errorf("[AdminHandler] 投递摄取任务失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "投递摄取任务失败", "data": nil})
		return
	}

	// 登记为待处理状态，消费者处理完成后更新
	record := &model.Publication{
		DocID:      req.DocID,
		Collection: req.Collection,
		Title:      req.Title,
		Authors:    req.Authors,
		Journal:    req.Journal,
		Year:       req.Year,
		URL:        req.URL,
		SourceType: req.SourceType,
		Status:     model.IngestStatusPending,
	}
	if err := h.publicationRepo.Upsert(record); err != nil {
		log.Warnf("[AdminHandler] 登记文档失败, DocID: %s, Error: %v", req.DocID, err)
	}

	c.JSON(http.StatusAccepted, gin.H{"code": http.StatusAccepted, "message": "摄取任务已接收", "data": gin.H{"doc_id": req.DocID, "object_key": objectKey}})
}

// ListDocuments 分页列出某个集合的文献登记记录。
func (h *AdminHandler) ListDocuments(c *gin.Context) {
	collection := c.Param("name")
	records, err := h.publicationRepo.ListByCollection(collection, 100, 0)
	if err != nil {
		log.Errorf("[AdminHandler] 查询文献登记库失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "查询文献登记库失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"documents": records, "total": len(records)}})
}

// DeleteDocument 删除一篇文档的全部分块与登记记录。
func (h *AdminHandler) DeleteDocument(c *gin.Context) {
	collection := c.Param("name")
	docID := c.Param("docId")

	if err := h.vectorStore.DeleteByDocID(c.Request.Context(), collection, docID); err != nil {
		log.Errorf("[AdminHandler] 删除文档分块失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "删除文档失败", "data": nil})
		return
	}
	if err := h.publicationRepo.DeleteByDocID(docID); err != nil {
		log.Warnf("[AdminHandler] 删除文献登记记录失败, DocID: %s, Error: %v", docID, err)
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"doc_id": docID}})
}
