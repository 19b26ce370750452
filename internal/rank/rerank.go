package rank

import (
	"github.com/xxxsen/passage/internal/bm25"
	"github.com/xxxsen/passage/internal/model"
)

type RerankConfig struct {
	TopN int
}

// Weighting of the rerank signals. The hybrid score stays dominant; the
// secondary signals reorder near-ties.
const (
	rerankBaseWeight     = 0.60
	rerankOverlapWeight  = 0.25
	rerankLengthWeight   = 0.10
	rerankPositionWeight = 0.05
)

const (
	idealMinChars = 200
	idealMaxChars = 1500
)

// Rerank recomputes RerankScore for the top-N candidates from exact keyword
// overlap, passage position within its document, and a penalty for unusually
// short or long passages, then reorders them by that score.
func Rerank(query string, cands []model.RetrievalCandidate, cfg RerankConfig) []model.RetrievalCandidate {
	n := cfg.TopN
	if n <= 0 || n > len(cands) {
		n = len(cands)
	}
	top := make([]model.RetrievalCandidate, n)
	copy(top, cands[:n])

	queryTerms := uniqueTerms(bm25.Tokenize(query))
	for i := range top {
		top[i].RerankScore = rerankBaseWeight*top[i].CombinedScore +
			rerankOverlapWeight*keywordOverlap(queryTerms, top[i].Text) +
			rerankLengthWeight*lengthScore(len([]rune(top[i].Text))) +
			rerankPositionWeight*positionScore(top[i].ChunkIndex)
	}
	sortCandidates(top, func(c model.RetrievalCandidate) float64 { return c.RerankScore })
	return top
}

func keywordOverlap(queryTerms map[string]struct{}, text string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	chunkTerms := uniqueTerms(bm25.Tokenize(text))
	matched := 0
	for term := range queryTerms {
		if _, ok := chunkTerms[term]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}

// positionScore slightly favors passages near the start of their document.
func positionScore(chunkIndex int) float64 {
	return 1.0 / (1.0 + float64(chunkIndex))
}

func lengthScore(chars int) float64 {
	switch {
	case chars <= 0:
		return 0
	case chars < idealMinChars:
		return float64(chars) / float64(idealMinChars)
	case chars > idealMaxChars:
		return float64(idealMaxChars) / float64(chars)
	default:
		return 1
	}
}

func uniqueTerms(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}
