package model

// RetrievalCandidate carries a chunk through the scoring pipeline.
// SimilarityScore is cosine similarity normalized to [0,1]; BM25Score is >= 0.
type RetrievalCandidate struct {
	ChunkID         string  `json:"chunk_id"`
	DocumentID      string  `json:"document_id"`
	Filename        string  `json:"filename"`
	ChunkIndex      int     `json:"chunk_index"`
	Text            string  `json:"text"`
	SimilarityScore float64 `json:"similarity_score"`
	BM25Score       float64 `json:"bm25_score"`
	CombinedScore   float64 `json:"combined_score"`
	RerankScore     float64 `json:"rerank_score"`
}

type RetrievalResult struct {
	Query      string               `json:"query"`
	Candidates []RetrievalCandidate `json:"candidates"`
}
