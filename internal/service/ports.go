package service

import (
	"context"

	"github.com/xxxsen/passage/internal/model"
)

// DocumentStore owns document rows. exists-by-filename backs duplicate
// ingestion detection.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByFilename(ctx context.Context, filename string) (*model.Document, error)
	GetByID(ctx context.Context, id string) (*model.Document, error)
	Delete(ctx context.Context, id string) error
}

// ChunkStore owns chunk rows and their embeddings. Implemented by
// repo.ChunkRepo over pgvector; tests substitute in-memory fakes.
type ChunkStore interface {
	BatchCreate(ctx context.Context, chunks []*model.Chunk) error
	UpsertEmbedding(ctx context.Context, chunkID string, embedding []float32) error
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*model.Chunk, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// VectorSearcher is the external ANN search boundary.
type VectorSearcher interface {
	SearchSimilar(ctx context.Context, vector []float32, topK int) ([]model.SearchHit, error)
}

// ChunkResolver hydrates a search hit into its passage.
type ChunkResolver interface {
	GetChunkInfo(ctx context.Context, chunkID string) (*model.ChunkInfo, error)
}
