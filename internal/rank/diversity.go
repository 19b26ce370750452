package rank

import (
	"github.com/xxxsen/passage/internal/bm25"
	"github.com/xxxsen/passage/internal/model"
)

type DiversityConfig struct {
	Threshold       float64
	AdjacencyWindow int
	FinalTopK       int
}

type chunkKey struct {
	filename string
	index    int
}

// Diversify walks candidates in rerank order and drops near-duplicates:
// exact repeats, overlap-adjacent chunks from the same document, and chunks
// whose token Jaccard similarity with an accepted chunk exceeds the
// threshold.
func Diversify(cands []model.RetrievalCandidate, cfg DiversityConfig) []model.RetrievalCandidate {
	accepted := make([]model.RetrievalCandidate, 0, cfg.FinalTopK)
	seen := make(map[chunkKey]struct{})
	tokenSets := make([]map[string]struct{}, 0, cfg.FinalTopK)

	for _, cand := range cands {
		if cfg.FinalTopK > 0 && len(accepted) >= cfg.FinalTopK {
			break
		}
		key := chunkKey{filename: cand.Filename, index: cand.ChunkIndex}
		if _, ok := seen[key]; ok {
			continue
		}
		if adjacentToAccepted(accepted, cand, cfg.AdjacencyWindow) {
			continue
		}
		tokens := uniqueTerms(bm25.Tokenize(cand.Text))
		if tooSimilar(tokenSets, tokens, cfg.Threshold) {
			continue
		}
		seen[key] = struct{}{}
		accepted = append(accepted, cand)
		tokenSets = append(tokenSets, tokens)
	}
	return accepted
}

func adjacentToAccepted(accepted []model.RetrievalCandidate, cand model.RetrievalCandidate, window int) bool {
	if window <= 0 {
		return false
	}
	for _, a := range accepted {
		if a.Filename != cand.Filename {
			continue
		}
		delta := a.ChunkIndex - cand.ChunkIndex
		if delta < 0 {
			delta = -delta
		}
		if delta <= window {
			return true
		}
	}
	return false
}

func tooSimilar(sets []map[string]struct{}, tokens map[string]struct{}, threshold float64) bool {
	if threshold <= 0 {
		return false
	}
	for _, set := range sets {
		if jaccard(set, tokens) > threshold {
			return true
		}
	}
	return false
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
