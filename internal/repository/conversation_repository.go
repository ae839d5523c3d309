package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"kosmos-go/internal/model"
)

// 对话历史的保留条数与过期时间。
const (
	conversationHistoryMax = 20
	conversationTTL        = 7 * 24 * time.Hour
)

// ConversationRepository 定义了按会话存取对话历史的操作接口。
type ConversationRepository interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.ConversationMessage, error)
	AppendExchange(ctx context.Context, sessionID string, question string, answer model.ConversationMessage) error
	ClearHistory(ctx context.Context, sessionID string) error
}

type redisConversationRepository struct {
	redisClient *redis.Client
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(redisClient *redis.Client) ConversationRepository {
	return &redisConversationRepository{redisClient: redisClient}
}

func conversationKey(sessionID string) string {
	return fmt.Sprintf("conversation:%s", sessionID)
}

// GetHistory 从 Redis 获取会话的对话历史，会话不存在时返回空历史。
func (r *redisConversationRepository) GetHistory(ctx context.Context, sessionID string) ([]model.ConversationMessage, error) {
	jsonData, err := r.redisClient.Get(ctx, conversationKey(sessionID)).Result()
	if err == redis.Nil {
		return []model.ConversationMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("获取对话历史失败: %w", err)
	}

	var messages []model.ConversationMessage
	if err := json.Unmarshal([]byte(jsonData), &messages); err != nil {
		return nil, fmt.Errorf("解析对话历史失败: %w", err)
	}
	return messages, nil
}

// AppendExchange 把一轮问答追加到会话历史，只保留最近若干条。
func (r *redisConversationRepository) AppendExchange(ctx context.Context, sessionID string, question string, answer model.ConversationMessage) error {
	messages, err := r.GetHistory(ctx, sessionID)
	if err != nil {
		return err
	}

	messages = append(messages, model.ConversationMessage{Role: model.RoleUser, Content: question})
	messages = append(messages, answer)
	if len(messages) > conversationHistoryMax {
		messages = messages[len(messages)-conversationHistoryMax:]
	}

	jsonData, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("序列化对话历史失败: %w", err)
	}
	if err := r.redisClient.Set(ctx, conversationKey(sessionID), jsonData, conversationTTL).Err(); err != nil {
		return fmt.Errorf("保存对话历史失败: %w", err)
	}
	return nil
}

// ClearHistory 清空会话的对话历史。
func (r *redisConversationRepository) ClearHistory(ctx context.Context, sessionID string) error {
	return r.redisClient.Del(ctx, conversationKey(sessionID)).Err()
}
