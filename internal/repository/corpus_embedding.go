package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/eunoia-health/eunoia/internal/index"
)

// CorpusEmbeddingRepository persists the corpus embedding matrix and serves
// nearest-neighbour queries over it. Row numbers mirror corpus file order, so
// the table is replaced wholesale whenever the corpus is re-embedded.
type CorpusEmbeddingRepository struct {
	pool *pgxpool.Pool
}

func NewCorpusEmbeddingRepository(pool *pgxpool.Pool) *CorpusEmbeddingRepository {
	return &CorpusEmbeddingRepository{pool: pool}
}

// ReplaceAll swaps in a new embedding matrix for one corpus language inside a
// single transaction, so searches never see a half-seeded table.
func (r *CorpusEmbeddingRepository) ReplaceAll(ctx context.Context, language string, rows [][]float32) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM corpus_embeddings WHERE language = $1`, language); err != nil {
		return err
	}

	for i, row := range rows {
		_, err := tx.Exec(ctx,
			`INSERT INTO corpus_embeddings (language, row_index, embedding) VALUES ($1, $2, $3)`,
			language, i, pgvector.NewVector(row),
		)
		if err != nil {
			return fmt.Errorf("failed to insert embedding row %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}

// Count returns the number of embedding rows stored for a language.
func (r *CorpusEmbeddingRepository) Count(ctx context.Context, language string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM corpus_embeddings WHERE language = $1`, language,
	).Scan(&n)
	return n, err
}

// Nearest returns the k rows closest to query by L2 distance, nearest first.
func (r *CorpusEmbeddingRepository) Nearest(ctx context.Context, language string, query []float32, k int) ([]index.Result, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT row_index, embedding <-> $1 AS distance
		 FROM corpus_embeddings
		 WHERE language = $2
		 ORDER BY distance ASC, row_index ASC
		 LIMIT $3`,
		pgvector.NewVector(query), language, k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []index.Result
	for rows.Next() {
		var res index.Result
		if err := rows.Scan(&res.Row, &res.Distance); err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	return results, rows.Err()
}
