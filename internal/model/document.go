package model

// Document is immutable once chunked; it disappears only through an
// explicit delete, which cascades to its chunks.
type Document struct {
	ID       string            `json:"id"`
	Filename string            `json:"filename"`
	RawText  string            `json:"raw_text"`
	Metadata map[string]string `json:"metadata"`
	Ctime    int64             `json:"ctime"`
}
