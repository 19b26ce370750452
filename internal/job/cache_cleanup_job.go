package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/passage/internal/repo"
)

// CacheCleanupJob removes persisted cache rows whose TTL has expired.
// Reads already ignore expired rows, so this only reclaims space.
type CacheCleanupJob struct {
	repo *repo.CacheRepo
}

func NewCacheCleanupJob(repo *repo.CacheRepo) *CacheCleanupJob {
	return &CacheCleanupJob{repo: repo}
}

func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

func (j *CacheCleanupJob) Run(ctx context.Context) error {
	if j.repo == nil {
		return nil
	}
	removed, err := j.repo.DeleteExpired(ctx, time.Now().Unix())
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("expired cache rows removed", zap.Int64("count", removed))
	}
	return nil
}
