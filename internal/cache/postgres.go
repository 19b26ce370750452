package cache

import (
	"context"
	"time"

	"github.com/xxxsen/passage/internal/model"
)

// CacheStore is the persistence contract the L3 tier relies on. The
// database implementation lives in internal/repo.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, entry *model.CacheEntry) error
	TopQueries(ctx context.Context, limit int) ([]model.TopQuery, error)
	Ping(ctx context.Context) error
}

// PostgresTier is the persistent L3: largest capacity, longest TTL, and the
// only tier that tracks hit counts for top-query analytics.
type PostgresTier struct {
	store CacheStore
	ttl   time.Duration
}

func NewPostgresTier(store CacheStore, ttl time.Duration) *PostgresTier {
	return &PostgresTier{store: store, ttl: ttl}
}

func (t *PostgresTier) Name() string {
	return "l3-postgres"
}

func (t *PostgresTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return t.store.Get(ctx, key)
}

func (t *PostgresTier) Set(ctx context.Context, e Entry) error {
	ttl := e.TTL
	if ttl <= 0 {
		ttl = t.ttl
	}
	now := time.Now().Unix()
	return t.store.Set(ctx, &model.CacheEntry{
		Key:          e.Key,
		Value:        e.Value,
		Query:        e.Label,
		Tier:         t.Name(),
		TTLSeconds:   int64(ttl / time.Second),
		Ctime:        now,
		LastAccessed: now,
	})
}

func (t *PostgresTier) Health(ctx context.Context) bool {
	return t.store.Ping(ctx) == nil
}

func (t *PostgresTier) TopQueries(ctx context.Context, limit int) ([]model.TopQuery, error) {
	return t.store.TopQueries(ctx, limit)
}
