package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_UnwrapsCause(t *testing.T) {
	cause := stderrors.New("connection reset by peer")
	err := NewQueryExecutionFailedError("count_equipment", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Details, "count_equipment")
	assert.Equal(t, "StandardError[QUERY_EXECUTION_FAILED]: Database query execution error", err.Error())
}

func TestAsStandardError(t *testing.T) {
	assert.Nil(t, AsStandardError(nil))

	wrapped := fmt.Errorf("dispatch: %w", NewAccessDeniedError("bookings", "Must be authenticated"))
	std := AsStandardError(wrapped)
	require.NotNil(t, std)
	assert.Equal(t, ErrCodeAccessDenied, std.Code)
	assert.True(t, HasCode(wrapped, ErrCodeAccessDenied))

	plain := AsStandardError(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
	assert.False(t, plain.Retryable)
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantRetries int
	}{
		{"retryable search failure", NewKnowledgeSearchFailedError("elasticsearch", stderrors.New("503")), 3},
		{"timeout", NewQueryTimeoutError("list_equipment"), 2},
		{"validation is terminal", NewInputValidationFailedError("message: required"), 0},
		{"non-retryable overrides table", NewGeoLookupFailedError(stderrors.New("x")), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, string(tt.err.Code), bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
			assert.Equal(t, tt.err.Message, vars["errorMessage"])
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeQueryTimeout))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeEmbeddingFailed))
	assert.Equal(t, "AUTH", GetErrorCategory(ErrCodeAccessDenied))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInputValidationFailed))
	assert.Equal(t, "OTHER", GetErrorCategory("SOMETHING_ELSE"))
}

func TestWithMetadata(t *testing.T) {
	err := NewAuditSinkFailedError("clickhouse", stderrors.New("down")).WithMetadata("batch", 12)
	assert.Equal(t, 12, err.Metadata["batch"])
}
