package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"

	apperrors "agriserve-query/internal/common/errors"
)

const searchKnowledgeSQL = `SELECT source_type, source_id, content, similarity, metadata
FROM search_knowledge_embeddings($1::vector, $2, $3)`

// PostgresSearcher calls the search_knowledge_embeddings function backed by pgvector.
type PostgresSearcher struct {
	db *sql.DB
}

func NewPostgresSearcher(db *sql.DB) *PostgresSearcher {
	return &PostgresSearcher{db: db}
}

func (s *PostgresSearcher) Name() string { return "postgres" }

func (s *PostgresSearcher) Search(ctx context.Context, embedding []float32, opts Options) ([]Hit, error) {
	opts = opts.withDefaults()

	rows, err := s.db.QueryContext(ctx, searchKnowledgeSQL, vectorLiteral(embedding), opts.Threshold, opts.Limit)
	if err != nil {
		return nil, searchError(ctx, s.Name(), err)
	}
	defer rows.Close()

	hits := []Hit{}
	for rows.Next() {
		var (
			h    Hit
			meta []byte
		)
		if err := rows.Scan(&h.SourceType, &h.SourceID, &h.Content, &h.Similarity, &meta); err != nil {
			return nil, apperrors.NewKnowledgeSearchFailedError(s.Name(), err)
		}
		h.Metadata = decodeMetadata(meta)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, searchError(ctx, s.Name(), err)
	}
	return hits, nil
}

func decodeMetadata(raw []byte) map[string]interface{} {
	meta := map[string]interface{}{}
	if len(raw) == 0 {
		return meta
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return map[string]interface{}{}
	}
	return meta
}

func searchError(ctx context.Context, backend string, err error) error {
	if ctx.Err() != nil {
		return apperrors.NewKnowledgeSearchTimeoutError(backend, err)
	}
	return apperrors.NewKnowledgeSearchFailedError(backend, err)
}
