package bm25

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreZeroWhenNoTermMatches(t *testing.T) {
	corpus := NewCorpus([]string{
		"the quick brown fox jumps over the lazy dog",
		"an entirely english passage about networking",
	}, 1.2, 0.75)
	for i := 0; i < corpus.Size(); i++ {
		require.Equal(t, 0.0, corpus.Score("beveiliging diensten", i))
	}
}

func TestScoreRanksMatchingChunkHigher(t *testing.T) {
	corpus := NewCorpus([]string{
		"security diensten voor bedrijven en overheid",
		"recepten voor appeltaart en koffie",
		"security security security diensten",
	}, 1.2, 0.75)
	s0 := corpus.Score("security diensten", 0)
	s1 := corpus.Score("security diensten", 1)
	s2 := corpus.Score("security diensten", 2)
	require.Greater(t, s0, 0.0)
	require.Equal(t, 0.0, s1)
	require.Greater(t, s2, s1)
}

func TestScoreOutOfRange(t *testing.T) {
	corpus := NewCorpus([]string{"one chunk"}, 1.2, 0.75)
	require.Equal(t, 0.0, corpus.Score("one", -1))
	require.Equal(t, 0.0, corpus.Score("one", 5))
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"", nil},
		{"dienst-verlening 2024", []string{"dienst", "verlening", "2024"}},
	}
	for _, tt := range tests {
		got := Tokenize(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		require.Equal(t, tt.want, got)
	}
}
