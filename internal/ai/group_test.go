package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticEmbedder struct {
	model string
	vec   []float32
	err   error
	calls int
}

func (s *staticEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func (s *staticEmbedder) ModelName() string { return s.model }

func TestGroupEmbedderFallsBackInOrder(t *testing.T) {
	broken := &staticEmbedder{model: "broken", err: errors.New("quota exceeded")}
	working := &staticEmbedder{model: "working", vec: []float32{1, 2, 3}}
	group := NewGroupEmbedder([]EmbedderEntry{
		{Name: "primary", Embedder: broken},
		{Name: "secondary", Embedder: working},
	})

	vec, err := group.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3}, vec)
	require.Equal(t, 1, broken.calls)
	require.Equal(t, 1, working.calls)
	require.Equal(t, "broken", group.ModelName())
}

func TestGroupEmbedderReturnsLastError(t *testing.T) {
	first := &staticEmbedder{model: "a", err: errors.New("down")}
	second := &staticEmbedder{model: "b", err: errors.New("also down")}
	group := NewGroupEmbedder([]EmbedderEntry{
		{Name: "a", Embedder: first},
		{Name: "b", Embedder: second},
	})

	_, err := group.Embed(context.Background(), "hello", "RETRIEVAL_DOCUMENT")
	require.EqualError(t, err, "also down")
}

func TestGroupEmbedderStopsAtFirstSuccess(t *testing.T) {
	primary := &staticEmbedder{model: "primary", vec: []float32{9}}
	secondary := &staticEmbedder{model: "secondary", vec: []float32{1}}
	group := NewGroupEmbedder([]EmbedderEntry{
		{Name: "primary", Embedder: primary},
		{Name: "secondary", Embedder: secondary},
	})

	vec, err := group.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, []float32{9}, vec)
	require.Zero(t, secondary.calls)
}
