package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/passage/internal/service"
)

const defaultBackfillBatch = 256

// EmbeddingBackfillJob re-embeds chunks whose vectors are missing,
// usually because the provider was unavailable during ingestion.
type EmbeddingBackfillJob struct {
	svc   *service.IngestService
	batch int
}

func NewEmbeddingBackfillJob(svc *service.IngestService, batch int) *EmbeddingBackfillJob {
	if batch <= 0 {
		batch = defaultBackfillBatch
	}
	return &EmbeddingBackfillJob{svc: svc, batch: batch}
}

func (j *EmbeddingBackfillJob) Name() string {
	return "embedding_backfill"
}

func (j *EmbeddingBackfillJob) Run(ctx context.Context) error {
	if j.svc == nil {
		return nil
	}
	embedded, err := j.svc.BackfillEmbeddings(ctx, j.batch)
	if err != nil {
		return err
	}
	if embedded > 0 {
		logutil.GetLogger(ctx).Info("embeddings backfilled", zap.Int("count", embedded))
	}
	return nil
}
