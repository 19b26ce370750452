package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/xxxsen/passage/internal/model"
)

// CacheRepo is the persistent L3 cache table. Expired rows are treated as
// misses on read and reaped by the cleanup job.
type CacheRepo struct {
	db *sql.DB
}

func NewCacheRepo(db *sql.DB) *CacheRepo {
	return &CacheRepo{db: db}
}

// Get returns the value when the entry is still live and bumps its hit
// count in the same statement.
func (r *CacheRepo) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const query = `
		UPDATE retrieval_cache
		SET hit_count = hit_count + 1, atime = $2
		WHERE cache_key = $1 AND ctime + ttl_seconds > $2
		RETURNING value
	`
	row := r.db.QueryRowContext(ctx, query, key, time.Now().Unix())
	var value []byte
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (r *CacheRepo) Set(ctx context.Context, entry *model.CacheEntry) error {
	const query = `
		INSERT INTO retrieval_cache (cache_key, value, query, ttl_seconds, hit_count, ctime, atime)
		VALUES ($1, $2, $3, $4, 0, $5, $6)
		ON CONFLICT (cache_key) DO UPDATE SET
			value = EXCLUDED.value,
			query = EXCLUDED.query,
			ttl_seconds = EXCLUDED.ttl_seconds,
			ctime = EXCLUDED.ctime,
			atime = EXCLUDED.atime
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.Key,
		entry.Value,
		entry.Query,
		entry.TTLSeconds,
		entry.Ctime,
		entry.LastAccessed,
	)
	return err
}

func (r *CacheRepo) TopQueries(ctx context.Context, limit int) ([]model.TopQuery, error) {
	const query = `
		SELECT query, SUM(hit_count) AS hits
		FROM retrieval_cache
		WHERE query <> ''
		GROUP BY query
		ORDER BY hits DESC, query ASC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TopQuery
	for rows.Next() {
		var item model.TopQuery
		if err := rows.Scan(&item.Query, &item.HitCount); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *CacheRepo) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	const query = `DELETE FROM retrieval_cache WHERE ctime + ttl_seconds < $1`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *CacheRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
