package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryTier is the in-process L1: an expiring LRU, sub-millisecond and
// lost on restart. The underlying LRU is safe for concurrent use.
type MemoryTier struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemoryTier(size int, ttl time.Duration) *MemoryTier {
	if size <= 0 {
		size = 10000
	}
	return &MemoryTier{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (t *MemoryTier) Name() string {
	return "l1-memory"
}

func (t *MemoryTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok := t.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(value), true, nil
}

func (t *MemoryTier) Set(ctx context.Context, e Entry) error {
	t.lru.Add(e.Key, cloneBytes(e.Value))
	return nil
}

func (t *MemoryTier) Health(ctx context.Context) bool {
	return true
}

func cloneBytes(value []byte) []byte {
	if len(value) == 0 {
		return nil
	}
	clone := make([]byte, len(value))
	copy(clone, value)
	return clone
}
