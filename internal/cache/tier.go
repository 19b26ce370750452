package cache

import (
	"context"
	"time"

	"github.com/xxxsen/passage/internal/model"
)

// Entry is one cache record. Label carries the human-readable origin of the
// key (the raw query text) so the persistent tier can aggregate analytics;
// it is empty for embedding entries and ignored by the volatile tiers.
type Entry struct {
	Key   string
	Label string
	Value []byte
	TTL   time.Duration
}

// Tier is a single cache layer. Implementations must be safe for
// concurrent use.
type Tier interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, e Entry) error
	Health(ctx context.Context) bool
}

// TopQueriesProvider is implemented by tiers that track per-key hit counts.
type TopQueriesProvider interface {
	TopQueries(ctx context.Context, limit int) ([]model.TopQuery, error)
}
