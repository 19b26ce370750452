package service

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/passage/internal/ai"
	"github.com/xxxsen/passage/internal/chunker"
	"github.com/xxxsen/passage/internal/model"
	appErr "github.com/xxxsen/passage/internal/pkg/errors"
)

type IngestResult struct {
	DocumentID    string `json:"document_id"`
	Existing      bool   `json:"existing"`
	ChunksCreated int    `json:"chunks_created"`
	Embedded      int    `json:"embedded"`
}

// IngestService turns raw document text into stored, embedded chunks.
// Embedding generation runs on a bounded worker pool; a chunk becomes
// searchable only after its vector is durably stored.
type IngestService struct {
	docs      DocumentStore
	chunks    ChunkStore
	splitter  *chunker.Chunker
	embedder  ai.IEmbedder
	pool      *ants.Pool
	batchSize int
}

func NewIngestService(docs DocumentStore, chunks ChunkStore, splitter *chunker.Chunker, embedder ai.IEmbedder, workers, batchSize int) (*IngestService, error) {
	if workers < 1 {
		workers = 1
	}
	if batchSize < 1 {
		batchSize = 64
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	return &IngestService{
		docs:      docs,
		chunks:    chunks,
		splitter:  splitter,
		embedder:  embedder,
		pool:      pool,
		batchSize: batchSize,
	}, nil
}

func (s *IngestService) Close() {
	s.pool.Release()
}

// Ingest stores a new document. Re-ingesting a filename that already
// exists short-circuits and returns the existing document id with zero
// new chunks.
func (s *IngestService) Ingest(ctx context.Context, filename, text string, metadata map[string]string) (*IngestResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("filename", filename))
	existing, err := s.docs.GetByFilename(ctx, filename)
	if err == nil {
		logger.Info("document already ingested", zap.String("document_id", existing.ID))
		return &IngestResult{DocumentID: existing.ID, Existing: true}, nil
	}
	if !appErr.IsNotFound(err) {
		return nil, err
	}

	now := time.Now().Unix()
	doc := &model.Document{
		ID:       newID(),
		Filename: filename,
		RawText:  text,
		Metadata: metadata,
		Ctime:    now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}

	pieces := s.splitter.Split(text)
	chunks := make([]*model.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, &model.Chunk{
			ID:            newID(),
			DocumentID:    doc.ID,
			ChunkIndex:    i,
			Text:          piece.Text,
			CharLength:    len([]rune(piece.Text)),
			ContainsTable: piece.ContainsTable,
			Ctime:         now,
		})
	}
	if err := s.chunks.BatchCreate(ctx, chunks); err != nil {
		return nil, err
	}

	embedded := s.embedChunks(ctx, chunks)
	logger.Info("document ingested",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(chunks)),
		zap.Int("embedded", embedded),
	)
	return &IngestResult{DocumentID: doc.ID, ChunksCreated: len(chunks), Embedded: embedded}, nil
}

// embedChunks fans batches out over the worker pool. Order within a batch
// does not matter: each vector is written back under its own chunk id.
// Failures are logged and left for the backfill job.
func (s *IngestService) embedChunks(ctx context.Context, chunks []*model.Chunk) int {
	var wg sync.WaitGroup
	var mu sync.Mutex
	embedded := 0
	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		for _, c := range batch {
			c := c
			wg.Add(1)
			if err := s.pool.Submit(func() {
				defer wg.Done()
				if err := s.embedOne(ctx, c); err != nil {
					logutil.GetLogger(ctx).Warn("chunk embedding failed",
						zap.String("chunk_id", c.ID),
						zap.Int("chunk_index", c.ChunkIndex),
						zap.Error(err),
					)
					return
				}
				mu.Lock()
				embedded++
				mu.Unlock()
			}); err != nil {
				wg.Done()
				logutil.GetLogger(ctx).Warn("embed task rejected", zap.Error(err))
			}
		}
		wg.Wait()
	}
	return embedded
}

func (s *IngestService) embedOne(ctx context.Context, c *model.Chunk) error {
	vector, err := s.embedder.Embed(ctx, c.Text, "RETRIEVAL_DOCUMENT")
	if err != nil {
		return err
	}
	return s.chunks.UpsertEmbedding(ctx, c.ID, vector)
}

// BackfillEmbeddings embeds chunks whose vectors are still missing.
func (s *IngestService) BackfillEmbeddings(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 1024
	}
	chunks, err := s.chunks.ListMissingEmbeddings(ctx, limit)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	return s.embedChunks(ctx, chunks), nil
}

// Delete removes a document with its chunks and vectors. Cached
// embeddings and query results are not invalidated here; they age out
// with their TTL.
func (s *IngestService) Delete(ctx context.Context, documentID string) error {
	if _, err := s.docs.GetByID(ctx, documentID); err != nil {
		return err
	}
	if err := s.chunks.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}
	return s.docs.Delete(ctx, documentID)
}
