package audit

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "agriserve-query/internal/common/errors"
	"agriserve-query/internal/common/logger"
)

func TestPostgresSink_MultiRowInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	anon := Event{ActorRole: "guest", Action: ActionQueryDenied, Resource: "bookings", Intent: "my_bookings",
		Reason: "Must be authenticated to query bookings", RequestID: "r1", Timestamp: ts}
	user := Event{ActorID: "u1", ActorRole: "farmer", Action: ActionQueryDenied, Resource: "bookings", Intent: "analytics_revenue",
		Reason: "Non-admin cannot access admin data", RequestID: "r2", Timestamp: ts}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ai_audit_logs (actor_id, actor_role, action, resource, intent, reason, request_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8), ($9, $10, $11, $12, $13, $14, $15, $16)")).
		WithArgs(nil, "guest", ActionQueryDenied, "bookings", "my_bookings", anon.Reason, "r1", ts,
			"u1", "farmer", ActionQueryDenied, "bookings", "analytics_revenue", user.Reason, "r2", ts).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, NewPostgresSink(db).WriteBatch(context.Background(), []Event{anon, user}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSink_WrapsError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO ai_audit_logs").WillReturnError(errors.New("relation does not exist"))

	err = NewPostgresSink(db).WriteBatch(context.Background(), []Event{event("r1")})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAuditSinkFailed))
}

func TestPostgresSink_EmptyBatchIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, NewPostgresSink(db).WriteBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// fakeConn and fakeBatch override only the methods the sink calls.
type fakeConn struct {
	driver.Conn
	query   string
	batch   *fakeBatch
	prepErr error
}

func (c *fakeConn) PrepareBatch(_ context.Context, query string, _ ...driver.PrepareBatchOption) (driver.Batch, error) {
	c.query = query
	if c.prepErr != nil {
		return nil, c.prepErr
	}
	return c.batch, nil
}

type fakeBatch struct {
	driver.Batch
	rows    [][]interface{}
	sent    bool
	sendErr error
}

func (b *fakeBatch) Append(v ...interface{}) error {
	b.rows = append(b.rows, v)
	return nil
}

func (b *fakeBatch) Send() error {
	b.sent = true
	return b.sendErr
}

func TestClickHouseSink_AppendsAndSends(t *testing.T) {
	conn := &fakeConn{batch: &fakeBatch{}}
	sink := NewClickHouseSink(conn, "")

	e := event("r1")
	e.Intent = "my_profile"
	require.NoError(t, sink.WriteBatch(context.Background(), []Event{e, event("r2")}))

	assert.Contains(t, conn.query, "INSERT INTO ai_audit_logs")
	assert.True(t, conn.batch.sent)
	require.Len(t, conn.batch.rows, 2)
	assert.Equal(t, "r1", conn.batch.rows[0][0])
	assert.Equal(t, "my_profile", conn.batch.rows[0][6])
}

func TestClickHouseSink_Errors(t *testing.T) {
	prep := NewClickHouseSink(&fakeConn{prepErr: errors.New("no such table")}, "audit")
	assert.True(t, apperrors.HasCode(prep.WriteBatch(context.Background(), []Event{event("r1")}), apperrors.ErrCodeAuditSinkFailed))

	send := NewClickHouseSink(&fakeConn{batch: &fakeBatch{sendErr: errors.New("timeout")}}, "audit")
	err := send.WriteBatch(context.Background(), []Event{event("r1")})
	require.Error(t, err)
	assert.Equal(t, 1, apperrors.AsStandardError(err).Metadata["batchSize"])
}

func TestLogSink(t *testing.T) {
	sink := NewLogSink(logger.NewTestLogger(t))
	assert.Equal(t, "log", sink.Name())
	assert.NoError(t, sink.WriteBatch(context.Background(), []Event{event("r1")}))
}
