package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/passage/internal/ai"
	"github.com/xxxsen/passage/internal/cache"
)

// WrapTieredCacheToEmbedder layers the tiered cache in front of an embedder.
// Correct only because embedders are deterministic for a given
// (model, task, text) triple.
func WrapTieredCacheToEmbedder(e ai.IEmbedder, mgr *cache.Manager) ai.IEmbedder {
	if e == nil || mgr == nil {
		return e
	}
	return &cachedEmbedder{next: e, cache: mgr}
}

type cachedEmbedder struct {
	next  ai.IEmbedder
	cache *cache.Manager
}

func (c *cachedEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	key := BuildCacheKey(c.next.ModelName(), taskType, text)
	if blob, ok := c.cache.Get(ctx, key); ok {
		var values []float32
		if err := json.Unmarshal(blob, &values); err == nil {
			logutil.GetLogger(ctx).Debug("embedding cache hit", zap.String("task_type", taskType))
			return values, nil
		}
		logutil.GetLogger(ctx).Warn("discarding undecodable cached embedding", zap.String("key", key))
	}
	values, err := c.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if blob, err := json.Marshal(values); err == nil {
		c.cache.Set(ctx, cache.Entry{Key: key, Value: blob})
	}
	return values, nil
}

func (c *cachedEmbedder) ModelName() string {
	return c.next.ModelName()
}

// BuildCacheKey derives the tier key for one embedding request.
func BuildCacheKey(modelName, taskType, text string) string {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	return "embed:" + modelName + ":" + taskType + ":" + hex.EncodeToString(hash[:])
}
