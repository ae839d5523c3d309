package embedding

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"kosmos-go/internal/config"
	"kosmos-go/pkg/log"
)

// Generator 在底层客户端之上提供缓存与限速的向量生成能力。
// 单条失败不向上冒泡：返回 nil 向量，由调用方决定跳过还是重试。
type Generator struct {
	client  Client
	cache   *lruCache
	limiter *rate.Limiter
	dims    int
}

// NewGenerator 创建向量生成器。interval_ms 控制对底层 API 的调用间隔，
// cache_size 为 0 时关闭缓存。
func NewGenerator(cfg config.EmbeddingConfig, client Client) *Generator {
	interval := time.Duration(cfg.IntervalMS) * time.Millisecond
	limiter := rate.NewLimiter(rate.Inf, 1)
	if interval > 0 {
		limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return &Generator{
		client:  client,
		cache:   newLRUCache(cfg.CacheSize),
		limiter: limiter,
		dims:    cfg.Dimensions,
	}
}

// Dimension 返回向量维度。
func (g *Generator) Dimension() int {
	return g.dims
}

// CacheLen 返回当前缓存条目数。
func (g *Generator) CacheLen() int {
	return g.cache.Len()
}

// Embed 生成单条文本的向量。空白文本或生成失败返回 nil。
func (g *Generator) Embed(ctx context.Context, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	key := cacheKey(text)
	if vector, ok := g.cache.Get(key); ok {
		return vector
	}

	if err := g.limiter.Wait(ctx); err != nil {
		log.Warnf("[Embedding] 等待限速器失败: %v", err)
		return nil
	}

	vector, err := g.client.CreateEmbedding(ctx, text)
	if err != nil {
		log.Warnf("[Embedding] 生成向量失败: %v", err)
		return nil
	}
	g.cache.Put(key, vector)
	return vector
}

// EmbedBatch 生成一批文本的向量，结果与输入一一对应。
// 空白文本或失败条目对应位置为 nil；仅在上下文取消时返回错误。
func (g *Generator) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	// 先查缓存，只对未命中的条目发起批量请求
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		key := cacheKey(text)
		if vector, ok := g.cache.Get(key); ok {
			results[i] = vector
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return results, nil
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	vectors, err := g.client.CreateEmbeddings(ctx, missTexts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// 批量失败时退回逐条生成，单条失败只影响对应位置
		log.Warnf("[Embedding] 批量生成失败，退回逐条生成: %v", err)
		for j, idx := range missIdx {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			results[idx] = g.Embed(ctx, missTexts[j])
		}
		return results, nil
	}

	for j, idx := range missIdx {
		results[idx] = vectors[j]
		g.cache.Put(cacheKey(missTexts[j]), vectors[j])
	}
	return results, nil
}
