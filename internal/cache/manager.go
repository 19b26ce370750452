package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/passage/internal/model"
)

// Manager reads through an ordered list of tiers, fastest first. A hit at a
// lower tier is backfilled into the tiers above it; writes go through to
// every reachable tier. A tier that fails is marked down for a cool-down
// interval and skipped instead of being retried on every call, so an outage
// of an optional tier only costs lookup speed, never correctness.
type Manager struct {
	tiers    []Tier
	cooldown time.Duration

	mu        sync.Mutex
	downUntil map[string]time.Time

	now func() time.Time
}

func NewManager(cooldown time.Duration, tiers ...Tier) *Manager {
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Manager{
		tiers:     tiers,
		cooldown:  cooldown,
		downUntil: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Get checks tiers in order and returns the first hit. Tier failures are
// logged and skipped; a full miss returns ok=false.
func (m *Manager) Get(ctx context.Context, key string) ([]byte, bool) {
	for i, tier := range m.tiers {
		if !m.usable(ctx, tier) {
			continue
		}
		value, ok, err := tier.Get(ctx, key)
		if err != nil {
			m.markDown(ctx, tier, err)
			continue
		}
		if !ok {
			continue
		}
		m.backfill(ctx, key, value, i)
		return value, true
	}
	return nil, false
}

// Set writes through to every tier that is currently reachable.
func (m *Manager) Set(ctx context.Context, e Entry) {
	for _, tier := range m.tiers {
		if !m.usable(ctx, tier) {
			continue
		}
		if err := tier.Set(ctx, e); err != nil {
			m.markDown(ctx, tier, err)
		}
	}
}

// TopQueries delegates to the first tier that tracks hit counts.
func (m *Manager) TopQueries(ctx context.Context, limit int) ([]model.TopQuery, error) {
	for _, tier := range m.tiers {
		provider, ok := tier.(TopQueriesProvider)
		if !ok {
			continue
		}
		return provider.TopQueries(ctx, limit)
	}
	return nil, fmt.Errorf("no tier tracks query hit counts")
}

func (m *Manager) backfill(ctx context.Context, key string, value []byte, hitTier int) {
	for _, tier := range m.tiers[:hitTier] {
		if !m.usable(ctx, tier) {
			continue
		}
		if err := tier.Set(ctx, Entry{Key: key, Value: value}); err != nil {
			m.markDown(ctx, tier, err)
		}
	}
}

// usable reports whether the tier should be tried. A tier past its
// cool-down gets a health probe before it is trusted again.
func (m *Manager) usable(ctx context.Context, tier Tier) bool {
	m.mu.Lock()
	until, down := m.downUntil[tier.Name()]
	if down && m.now().Before(until) {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()
	if !down {
		return true
	}
	if !tier.Health(ctx) {
		m.mu.Lock()
		m.downUntil[tier.Name()] = m.now().Add(m.cooldown)
		m.mu.Unlock()
		return false
	}
	m.mu.Lock()
	delete(m.downUntil, tier.Name())
	m.mu.Unlock()
	logutil.GetLogger(ctx).Info("cache tier recovered", zap.String("tier", tier.Name()))
	return true
}

func (m *Manager) markDown(ctx context.Context, tier Tier, cause error) {
	m.mu.Lock()
	m.downUntil[tier.Name()] = m.now().Add(m.cooldown)
	m.mu.Unlock()
	logutil.GetLogger(ctx).Warn("cache tier down, entering cool-down",
		zap.String("tier", tier.Name()),
		zap.Duration("cooldown", m.cooldown),
		zap.Error(cause),
	)
}
