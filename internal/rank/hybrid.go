package rank

import (
	"sort"

	"github.com/xxxsen/passage/internal/model"
)

type HybridConfig struct {
	SemanticWeight float64
	BM25Weight     float64
	MinSimilarity  float64
}

// Combine discards candidates below the similarity floor, min-max normalizes
// both signals within the surviving pool, and merges them into CombinedScore.
// Normalizing per pool keeps the two signals comparable even though their
// absolute scales differ.
func Combine(cands []model.RetrievalCandidate, cfg HybridConfig) []model.RetrievalCandidate {
	pool := make([]model.RetrievalCandidate, 0, len(cands))
	for _, c := range cands {
		if c.SimilarityScore < cfg.MinSimilarity {
			continue
		}
		pool = append(pool, c)
	}
	if len(pool) == 0 {
		return pool
	}

	sims := make([]float64, len(pool))
	kws := make([]float64, len(pool))
	for i, c := range pool {
		sims[i] = c.SimilarityScore
		kws[i] = c.BM25Score
	}
	normSims := minMaxNormalize(sims)
	normKws := minMaxNormalize(kws)
	for i := range pool {
		pool[i].CombinedScore = cfg.SemanticWeight*normSims[i] + cfg.BM25Weight*normKws[i]
	}
	sortCandidates(pool, func(c model.RetrievalCandidate) float64 { return c.CombinedScore })
	return pool
}

func minMaxNormalize(values []float64) []float64 {
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	out := make([]float64, len(values))
	for i, v := range values {
		switch {
		case hi > lo:
			out[i] = (v - lo) / (hi - lo)
		case hi > 0:
			out[i] = 1
		default:
			out[i] = 0
		}
	}
	return out
}

// sortCandidates orders by score descending, ties broken by
// (filename, chunk_index) ascending so results are reproducible.
func sortCandidates(cands []model.RetrievalCandidate, score func(model.RetrievalCandidate) float64) {
	sort.SliceStable(cands, func(i, j int) bool {
		si, sj := score(cands[i]), score(cands[j])
		if si != sj {
			return si > sj
		}
		if cands[i].Filename != cands[j].Filename {
			return cands[i].Filename < cands[j].Filename
		}
		return cands[i].ChunkIndex < cands[j].ChunkIndex
	})
}
