package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kosmos-go/internal/entity"
	"kosmos-go/pkg/log"
)

// EntityHandler 负责处理实体抽取请求。
type EntityHandler struct {
	extractor entity.Extractor
}

// NewEntityHandler 创建一个新的 EntityHandler。
func NewEntityHandler(extractor entity.Extractor) *EntityHandler {
	return &EntityHandler{extractor: extractor}
}

type extractRequest struct {
	Text string `json:"text" binding:"required"`
}

// Extract 从文本中抽取领域实体。
func (h *EntityHandler) Extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求参数", "data": nil})
		return
	}

	entities, err := h.extractor.Extract(c.Request.Context(), req.Text)
	if err != nil {
		log.Errorf("[EntityHandler] 实体抽取失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "实体抽取失败", "data": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": entities})
}
