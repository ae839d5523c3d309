package database

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"kosmos-go/internal/config"
	"kosmos-go/pkg/log"
)

// NewRedis 建立 Redis 客户端连接并验证连通性。
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	log.Info("Redis client connected successfully")
	return rdb, nil
}
