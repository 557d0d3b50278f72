package knowledge

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "agriserve-query/internal/common/errors"
)

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[0.1,0.25,-3]", vectorLiteral([]float32{0.1, 0.25, -3}))
	assert.Equal(t, "[]", vectorLiteral(nil))
}

func TestPostgresSearcher_Search(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM search_knowledge_embeddings($1::vector, $2, $3)")).
		WithArgs("[0.1,0.25]", DefaultThreshold, DefaultLimit).
		WillReturnRows(sqlmock.NewRows([]string{"source_type", "source_id", "content", "similarity", "metadata"}).
			AddRow("equipment", "eq-1", "Swaraj 744 tractor", 0.82, `{"name":"Swaraj 744","price_per_day":2500}`).
			AddRow("review", "rv-1", "Great machine", 0.44, nil))

	hits, err := NewPostgresSearcher(db).Search(context.Background(), []float32{0.1, 0.25}, Options{})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "equipment", hits[0].SourceType)
	assert.Equal(t, "Swaraj 744", hits[0].Metadata["name"])
	assert.Equal(t, 2500.0, hits[0].Metadata["price_per_day"])
	assert.NotNil(t, hits[1].Metadata)
	assert.Empty(t, hits[1].Metadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSearcher_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("search_knowledge_embeddings").WillReturnError(errors.New(`function search_knowledge_embeddings does not exist`))

	_, err = NewPostgresSearcher(db).Search(context.Background(), []float32{1}, Options{Threshold: 0.5, Limit: 3})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeKnowledgeSearchFailed))
}

func TestPostgresSearcher_CancelledIsTimeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock.ExpectQuery("search_knowledge_embeddings").WillReturnError(context.Canceled)

	_, err = NewPostgresSearcher(db).Search(ctx, []float32{1}, Options{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeKnowledgeSearchTimeout))
}
