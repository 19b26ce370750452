package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBadgerTierRoundTrip(t *testing.T) {
	tier, err := NewBadgerTier("", true, time.Minute)
	require.NoError(t, err)
	defer tier.Close()

	ctx := context.Background()
	require.NoError(t, tier.Set(ctx, Entry{Key: "k", Value: []byte("v")}))

	got, ok, err := tier.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)

	_, ok, err = tier.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBadgerTierTTLExpiry(t *testing.T) {
	tier, err := NewBadgerTier("", true, time.Minute)
	require.NoError(t, err)
	defer tier.Close()

	ctx := context.Background()
	require.NoError(t, tier.Set(ctx, Entry{Key: "k", Value: []byte("v"), TTL: 50 * time.Millisecond}))
	time.Sleep(120 * time.Millisecond)

	_, ok, err := tier.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBadgerTierHealth(t *testing.T) {
	tier, err := NewBadgerTier("", true, time.Minute)
	require.NoError(t, err)
	require.True(t, tier.Health(context.Background()))
	require.NoError(t, tier.Close())
	require.False(t, tier.Health(context.Background()))
}
