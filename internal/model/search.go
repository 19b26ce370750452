package model

// SearchHit is one raw nearest-neighbour result from the vector store.
type SearchHit struct {
	ChunkID    string  `json:"chunk_id"`
	Similarity float64 `json:"similarity"`
}

// ChunkInfo is a search hit hydrated with its passage text and position.
type ChunkInfo struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	CharLength int    `json:"char_length"`
}
