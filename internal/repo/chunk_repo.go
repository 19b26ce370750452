package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/passage/internal/model"
	"github.com/xxxsen/passage/internal/pkg/dbutil"
	appErr "github.com/xxxsen/passage/internal/pkg/errors"
)

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// BatchCreate inserts chunk rows without embeddings. A chunk only becomes
// eligible for similarity search once UpsertEmbedding has stored its
// vector, which keeps the store-before-searchable ordering.
func (r *ChunkRepo) BatchCreate(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, map[string]interface{}{
			"id":             c.ID,
			"document_id":    c.DocumentID,
			"chunk_index":    c.ChunkIndex,
			"content":        c.Text,
			"char_length":    c.CharLength,
			"contains_table": c.ContainsTable,
			"ctime":          c.Ctime,
		})
	}
	sqlStr, args, err := builder.BuildInsert("chunks", rows)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ChunkRepo) UpsertEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	const query = `UPDATE chunks SET embedding = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, pgvector.NewVector(embedding), chunkID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// SearchSimilar runs the cosine nearest-neighbour query over chunks that
// already have a stored embedding.
func (r *ChunkRepo) SearchSimilar(ctx context.Context, vector []float32, topK int) ([]model.SearchHit, error) {
	const query = `
		SELECT id, 1 - (embedding <=> $1) AS similarity
		FROM chunks
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hits []model.SearchHit
	for rows.Next() {
		var hit model.SearchHit
		if err := rows.Scan(&hit.ChunkID, &hit.Similarity); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// GetChunkInfo hydrates a search hit with its passage text and position.
func (r *ChunkRepo) GetChunkInfo(ctx context.Context, chunkID string) (*model.ChunkInfo, error) {
	const query = `
		SELECT c.id, c.document_id, d.filename, c.chunk_index, c.content, c.char_length
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.id = $1
	`
	row := r.db.QueryRowContext(ctx, query, chunkID)
	var info model.ChunkInfo
	if err := row.Scan(&info.ChunkID, &info.DocumentID, &info.Filename, &info.ChunkIndex, &info.Text, &info.CharLength); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &info, nil
}

// ListMissingEmbeddings feeds the backfill job.
func (r *ChunkRepo) ListMissingEmbeddings(ctx context.Context, limit int) ([]*model.Chunk, error) {
	const query = `
		SELECT id, document_id, chunk_index, content, char_length, contains_table, ctime
		FROM chunks
		WHERE embedding IS NULL
		ORDER BY ctime
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []*model.Chunk
	for rows.Next() {
		var c model.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Text, &c.CharLength, &c.ContainsTable, &c.Ctime); err != nil {
			return nil, err
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepo) CountByDocument(ctx context.Context, documentID string) (int, error) {
	sqlStr, args, err := builder.BuildSelect("chunks",
		map[string]interface{}{"document_id": documentID}, []string{"count(*)"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var count int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	sqlStr, args, err := builder.BuildDelete("chunks", map[string]interface{}{"document_id": documentID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
