package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/passage/internal/cache"
)

type countingEmbedder struct {
	calls int
	fail  bool
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	if c.fail {
		return nil, errors.New("embedder down")
	}
	return []float32{float32(len(text)), 1, 2}, nil
}

func (c *countingEmbedder) ModelName() string { return "test-model" }

func TestCachedEmbedderHitsCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	mgr := cache.NewManager(time.Second, cache.NewMemoryTier(16, time.Minute))
	embedder := WrapTieredCacheToEmbedder(inner, mgr)

	first, err := embedder.Embed(ctx, "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	second, err := embedder.Embed(ctx, "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls)
}

func TestCachedEmbedderKeyIncludesTaskType(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	mgr := cache.NewManager(time.Second, cache.NewMemoryTier(16, time.Minute))
	embedder := WrapTieredCacheToEmbedder(inner, mgr)

	_, err := embedder.Embed(ctx, "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	_, err = embedder.Embed(ctx, "hello", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestCachedEmbedderPropagatesFailure(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{fail: true}
	mgr := cache.NewManager(time.Second, cache.NewMemoryTier(16, time.Minute))
	embedder := WrapTieredCacheToEmbedder(inner, mgr)

	_, err := embedder.Embed(ctx, "hello", "RETRIEVAL_QUERY")
	require.Error(t, err)
}

func TestBuildCacheKey(t *testing.T) {
	k1 := BuildCacheKey("m", "q", "text")
	k2 := BuildCacheKey("m", "q", "text")
	k3 := BuildCacheKey("m", "q", "other")
	require.Equal(t, k1, k2)
	require.NotEqual(t, k1, k3)
	require.Contains(t, BuildCacheKey("", "q", "text"), "embed:unknown:q:")
}
