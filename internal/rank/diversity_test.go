package rank

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/passage/internal/model"
)

func TestDiversifyRejectsExactDuplicateKeys(t *testing.T) {
	cands := []model.RetrievalCandidate{
		cand("a.md", 1, 0, 0, "alpha beta gamma"),
		cand("a.md", 1, 0, 0, "alpha beta gamma"),
		cand("b.md", 1, 0, 0, "delta epsilon zeta"),
	}
	out := Diversify(cands, DiversityConfig{Threshold: 0.9, AdjacencyWindow: 0, FinalTopK: 10})
	require.Len(t, out, 2)
	require.Equal(t, "a.md", out[0].Filename)
	require.Equal(t, "b.md", out[1].Filename)
}

// Consecutive chunks of one document dominate the top ranks. The adjacency
// window drops the direct neighbours and the Jaccard check drops the
// overlap-sharing chunk just outside the window, so only the first survives.
func TestDiversifyConsecutiveChunkRun(t *testing.T) {
	shared := "storage engine compaction write amplification levels sstable merge policy tuning"
	cands := []model.RetrievalCandidate{
		cand("doc.md", 10, 0, 0, shared+" part ten"),
		cand("doc.md", 11, 0, 0, shared+" part eleven"),
		cand("doc.md", 12, 0, 0, shared+" part twelve"),
		cand("doc.md", 13, 0, 0, shared+" part thirteen"),
		cand("other.md", 2, 0, 0, "an unrelated passage about bird migration patterns"),
	}
	out := Diversify(cands, DiversityConfig{Threshold: 0.5, AdjacencyWindow: 2, FinalTopK: 8})
	require.Len(t, out, 2)
	require.Equal(t, "doc.md", out[0].Filename)
	require.Equal(t, 10, out[0].ChunkIndex)
	require.Equal(t, "other.md", out[1].Filename)
}

func TestDiversifyDedupInvariant(t *testing.T) {
	cands := []model.RetrievalCandidate{
		cand("a.md", 0, 0, 0, "first passage wholly unique content one"),
		cand("a.md", 5, 0, 0, "second passage wholly distinct content two"),
		cand("a.md", 6, 0, 0, "third passage entirely different content three"),
		cand("b.md", 0, 0, 0, "fourth passage from another file four"),
	}
	window := 2
	out := Diversify(cands, DiversityConfig{Threshold: 0.5, AdjacencyWindow: window, FinalTopK: 10})

	seen := make(map[chunkKey]struct{})
	for _, c := range out {
		key := chunkKey{filename: c.Filename, index: c.ChunkIndex}
		_, dup := seen[key]
		require.False(t, dup, "duplicate key %v", key)
		seen[key] = struct{}{}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[i].Filename != out[j].Filename {
				continue
			}
			delta := out[i].ChunkIndex - out[j].ChunkIndex
			if delta < 0 {
				delta = -delta
			}
			require.Greater(t, delta, window)
		}
	}
}

func TestDiversifyStopsAtFinalTopK(t *testing.T) {
	var cands []model.RetrievalCandidate
	words := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}
	for i, w := range words {
		cands = append(cands, cand(w+".md", i, 0, 0, w+" standalone passage"))
	}
	out := Diversify(cands, DiversityConfig{Threshold: 0.5, AdjacencyWindow: 2, FinalTopK: 3})
	require.Len(t, out, 3)
}

func TestJaccard(t *testing.T) {
	a := map[string]struct{}{"x": {}, "y": {}, "z": {}}
	b := map[string]struct{}{"y": {}, "z": {}, "w": {}}
	require.InDelta(t, 0.5, jaccard(a, b), 1e-9)
	require.Equal(t, 0.0, jaccard(nil, b))
}
