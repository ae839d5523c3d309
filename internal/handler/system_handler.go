package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kosmos-go/pkg/vectordb"
)

// SystemHandler 负责健康检查等系统接口。
type SystemHandler struct {
	vectorStore *vectordb.Store
}

// NewSystemHandler 创建一个新的 SystemHandler。
func NewSystemHandler(vectorStore *vectordb.Store) *SystemHandler {
	return &SystemHandler{vectorStore: vectorStore}
}

// Health 报告服务与向量库的健康状态。
func (h *SystemHandler) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	if !h.vectorStore.HealthCheck() {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"code": code, "message": status, "data": gin.H{"vectordb": status == "ok"}})
}
