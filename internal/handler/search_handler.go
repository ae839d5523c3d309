package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kosmos-go/internal/service"
	"kosmos-go/pkg/log"
)

// SearchHandler 负责处理文档检索请求。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

type searchRequest struct {
	Query       string                 `json:"query" binding:"required"`
	Collections []string               `json:"collections"`
	TopK        int                    `json:"top_k"`
	Filters     map[string]interface{} `json:"filters"`
}

// Search 执行多集合语义检索。
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求参数", "data": nil})
		return
	}

	results, err := h.searchService.SearchDocuments(c.Request.Context(), req.Query, req.Collections, req.TopK, req.Filters)
	if err != nil {
		log.Errorf("[SearchHandler] 检索失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "检索失败", "data": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"results": results, "total": len(results)},
	})
}
