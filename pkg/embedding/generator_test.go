package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kosmos-go/internal/config"
)

type fakeClient struct {
	calls     int
	failTexts map[string]bool
	failBatch bool
}

func (f *fakeClient) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failTexts[text] {
		return nil, errors.New("api error")
	}
	return []float32{float32(len(text)), 1}, nil
}

func (f *fakeClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.failBatch {
		return nil, errors.New("batch api error")
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		if f.failTexts[t] {
			return nil, errors.New("api error")
		}
		vectors[i] = []float32{float32(len(t)), 1}
	}
	return vectors, nil
}

func testConfig(cacheSize int) config.EmbeddingConfig {
	return config.EmbeddingConfig{Dimensions: 2, IntervalMS: 0, CacheSize: cacheSize}
}

func TestEmbedBlankReturnsNil(t *testing.T) {
	g := NewGenerator(testConfig(10), &fakeClient{})
	assert.Nil(t, g.Embed(context.Background(), ""))
	assert.Nil(t, g.Embed(context.Background(), "   \n\t "))
}

func TestEmbedFailureReturnsNil(t *testing.T) {
	client := &fakeClient{failTexts: map[string]bool{"bad": true}}
	g := NewGenerator(testConfig(10), client)

	assert.Nil(t, g.Embed(context.Background(), "bad"))
	assert.NotNil(t, g.Embed(context.Background(), "good"))
}

func TestEmbedCacheHit(t *testing.T) {
	client := &fakeClient{}
	g := NewGenerator(testConfig(10), client)

	first := g.Embed(context.Background(), "bone density")
	second := g.Embed(context.Background(), "bone density")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 1, g.CacheLen())
}

func TestEmbedBatchOrderAndBlanks(t *testing.T) {
	g := NewGenerator(testConfig(10), &fakeClient{})

	results, err := g.EmbedBatch(context.Background(), []string{"alpha", "", "gamma"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
	assert.NotNil(t, results[2])
}

func TestEmbedBatchFallsBackPerItem(t *testing.T) {
	client := &fakeClient{failTexts: map[string]bool{"bad": true}}
	g := NewGenerator(testConfig(10), client)

	results, err := g.EmbedBatch(context.Background(), []string{"good", "bad"})
	require.NoError(t, err)
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
}

func TestEmbedBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGenerator(testConfig(10), &fakeClient{failBatch: true})
	_, err := g.EmbedBatch(ctx, []string{"alpha"})
	assert.Error(t, err)
}

func TestLRUCacheEviction(t *testing.T) {
	cache := newLRUCache(2)
	cache.Put("a", []float32{1})
	cache.Put("b", []float32{2})

	// 访问 a 使其成为最新，插入 c 应淘汰 b
	_, ok := cache.Get("a")
	require.True(t, ok)
	cache.Put("c", []float32{3})

	_, ok = cache.Get("b")
	assert.False(t, ok)
	_, ok = cache.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, cache.Len())
}

func TestLRUCacheDisabled(t *testing.T) {
	cache := newLRUCache(0)
	cache.Put("a", []float32{1})
	_, ok := cache.Get("a")
	assert.False(t, ok)
}
