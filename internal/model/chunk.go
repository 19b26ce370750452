package model

type Chunk struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	ChunkIndex    int       `json:"chunk_index"`
	Text          string    `json:"text"`
	Embedding     []float32 `json:"embedding"`
	CharLength    int       `json:"char_length"`
	ContainsTable bool      `json:"contains_table"`
	Ctime         int64     `json:"ctime"`
}
