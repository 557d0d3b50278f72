package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "agriserve-query/internal/common/errors"
)

func testClient(maxRetries int) *Client {
	return &Client{config: &ClientConfig{RetryConfig: &RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}}}
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		err  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"rpc error: code = NotFound desc = job not found", false},
		{"rpc error: code = InvalidArgument", false},
	}
	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(errors.New(tt.err)))
		})
	}
}

func TestExecuteWithRetry_RecoversFromTransientFailure(t *testing.T) {
	c := testClient(3)
	calls := 0
	got, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset by peer")
		}
		return "ok", nil
	}, "topology")

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	c := testClient(3)
	calls := 0
	_, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		return nil, errors.New("permission denied")
	}, "complete job")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAccessDenied))
}

func TestExecuteWithRetry_MapsExhaustedTimeout(t *testing.T) {
	c := testClient(1)
	_, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		return nil, errors.New("context deadline exceeded")
	}, "topology")

	std := apperrors.AsStandardError(err)
	assert.Equal(t, apperrors.ErrorCode("TIMEOUT_ERROR"), std.Code)
	assert.Contains(t, std.Details, "Zeebe operation 'topology' failed after 1 attempts")
}
