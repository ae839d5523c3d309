// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"kosmos-go/internal/model"
	"kosmos-go/internal/repository"
	"kosmos-go/internal/service"
	"kosmos-go/pkg/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// 流式连接令牌的有效期。
const streamTokenTTL = 5 * time.Minute

// ChatHandler 负责处理问答请求与 WebSocket 流式连接。
type ChatHandler struct {
	ragService       service.RAGService
	conversationRepo repository.ConversationRepository

	// streamTokens 保存一次性流式连接令牌及其过期时间
	streamTokens sync.Map // key: token string, value: time.Time
	// stopFlags 保存每个连接的停止标志
	stopFlags sync.Map // key: session pointer string, value: bool
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(ragService service.RAGService, conversationRepo repository.ConversationRepository) *ChatHandler {
	return &ChatHandler{ragService: ragService, conversationRepo: conversationRepo}
}

type chatRequest struct {
	Query     string                      `json:"query" binding:"required"`
	History   []model.ConversationMessage `json:"history"`
	SessionID string                      `json:"session_id"`
	TopK      int                         `json:"top_k"`
}

// Chat 处理一次同步问答请求。
// 提供 session_id 时，未显式传 history 则从会话存储加载，并在成功后回写本轮问答。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求参数", "data": nil})
		return
	}

	history := req.History
	if history == nil && req.SessionID != "" {
		loaded, err := h.conversationRepo.GetHistory(c.Request.Context(), req.SessionID)
		if err != nil {
			log.Warnf("[ChatHandler] 加载会话历史失败, session: %s, err: %v", req.SessionID, err)
		} else {
			history = loaded
		}
	}

	result := h.ragService.Chat(c.Request.Context(), req.Query, history, req.TopK)

	if result.Success && req.SessionID != "" {
		answer := model.ConversationMessage{
			Role:    model.RoleAssistant,
			Content: result.Response,
			Sources: result.Sources,
		}
		// 使用后台上下文，保证请求取消后历史仍能落盘
		if err := h.conversationRepo.AppendExchange(context.Background(), req.SessionID, req.Query, answer); err != nil {
			log.Errorf("[ChatHandler] 保存会话历史失败, session: %s, err: %v", req.SessionID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": result})
}

// ClearHistory 清空指定会话的对话历史。
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if err := h.conversationRepo.ClearHistory(c.Request.Context(), sessionID); err != nil {
		log.Errorf("[ChatHandler] 清空会话历史失败, session: %s, err: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "清空会话历史失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"session_id": sessionID}})
}

type summaryRequest struct {
	Topic string `json:"topic" binding:"required"`
}

// ResearchSummary 生成主题研究综述。
func (h *ChatHandler) ResearchSummary(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求参数", "data": nil})
		return
	}

	result := h.ragService.ResearchSummary(c.Request.Context(), req.Topic)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": result})
}

type compareRequest struct {
	Topics []string `json:"topics" binding:"required,min=2"`
}

// CompareStudies 对比多个研究主题。
func (h *ChatHandler) CompareStudies(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求参数", "data": nil})
		return
	}

	result := h.ragService.CompareStudies(c.Request.Context(), req.Topics)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": result})
}

type missionRequest struct {
	Mission string `json:"mission" binding:"required"`
}

// MissionStudies 检索特定任务相关的研究。
func (h *ChatHandler) MissionStudies(c *gin.Context) {
	var req missionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求参数", "data": nil})
		return
	}

	result := h.ragService.MissionStudies(c.Request.Context(), req.Mission)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": result})
}

// GetStreamToken 签发一次性的流式连接令牌。
func (h *ChatHandler) GetStreamToken(c *gin.Context) {
	token := uuid.NewString()
	h.streamTokens.Store(token, time.Now().Add(streamTokenTTL))
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"streamToken": token}})
}

// consumeStreamToken 验证并消费一次性令牌。
func (h *ChatHandler) consumeStreamToken(token string) bool {
	value, ok := h.streamTokens.LoadAndDelete(token)
	if !ok {
		return false
	}
	expiry, ok := value.(time.Time)
	return ok && time.Now().Before(expiry)
}

type streamQuery struct {
	Type    string                      `json:"type"`
	Query   string                      `json:"query"`
	History []model.ConversationMessage `json:"history"`
}

// HandleStream 处理一个传入的 WebSocket 流式问答连接。
func (h *ChatHandler) HandleStream(c *gin.Context) {
	token := c.Param("token")
	if !h.consumeStreamToken(token) {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	defer h.stopFlags.Delete(sessionKey(conn))

	log.Infof("WebSocket 连接已建立, token: %s", token)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		var req streamQuery
		if err := json.Unmarshal(message, &req); err != nil {
			// 纯文本消息按查询处理
			req = streamQuery{Query: string(message)}
		}

		// 停止指令：置位停止标志并确认
		if req.Type == "stop" {
			h.stopFlags.Store(sessionKey(conn), true)
			h.sendNotification(conn, "stop", "响应已停止")
			continue
		}

		key := sessionKey(conn)
		h.stopFlags.Delete(key)
		shouldStop := func() bool {
			v, ok := h.stopFlags.Load(key)
			return ok && v.(bool)
		}

		writer := &chunkWriter{conn: conn}
		sources, err := h.ragService.StreamChat(c.Request.Context(), req.Query, req.History, writer, shouldStop)
		if err != nil {
			log.Errorf("处理流式响应失败: %v", err)
			errResp := map[string]string{"error": "服务暂时不可用，请稍后重试"}
			b, _ := json.Marshal(errResp)
			_ = conn.WriteMessage(websocket.TextMessage, b)
			h.sendNotification(conn, "completion", "响应已完成")
			break
		}

		// 流结束后下发引用来源与完成通知
		h.sendSources(conn, sources)
		h.sendNotification(conn, "completion", "响应已完成")
	}
}

func (h *ChatHandler) sendSources(conn *websocket.Conn, sources []model.Source) {
	payload := map[string]interface{}{
		"type":    "sources",
		"sources": sources,
	}
	b, _ := json.Marshal(payload)
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

func (h *ChatHandler) sendNotification(conn *websocket.Conn, notifType, message string) {
	notif := map[string]interface{}{
		"type":      notifType,
		"status":    "finished",
		"message":   message,
		"timestamp": time.Now().UnixMilli(),
		"date":      time.Now().Format("2006-01-02T15:04:05"),
	}
	b, _ := json.Marshal(notif)
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

// chunkWriter 把流式分块包装成 {"chunk":"..."} 下发。
type chunkWriter struct {
	conn *websocket.Conn
}

func (w *chunkWriter) WriteMessage(messageType int, data []byte) error {
	payload := map[string]string{"chunk": string(data)}
	b, _ := json.Marshal(payload)
	return w.conn.WriteMessage(messageType, b)
}

func sessionKey(conn *websocket.Conn) string {
	return fmt.Sprintf("%p", conn)
}
