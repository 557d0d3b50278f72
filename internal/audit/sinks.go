package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	apperrors "agriserve-query/internal/common/errors"
	"agriserve-query/internal/common/logger"
)

// LogSink writes each event as a structured log line. Used for local development.
type LogSink struct {
	log logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) WriteBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		s.log.Info("audit_event", map[string]interface{}{
			"actorId":   e.ActorID,
			"actorRole": e.ActorRole,
			"action":    e.Action,
			"resource":  e.Resource,
			"intent":    e.Intent,
			"reason":    e.Reason,
			"requestId": e.RequestID,
			"timestamp": e.Timestamp,
		})
	}
	return nil
}

// PostgresSink inserts a batch into ai_audit_logs with one multi-row statement.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Name() string { return "postgres" }

const postgresAuditColumns = 8

func (s *PostgresSink) WriteBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ai_audit_logs (actor_id, actor_role, action, resource, intent, reason, request_id, created_at) VALUES ")

	args := make([]interface{}, 0, len(events)*postgresAuditColumns)
	for i, e := range events {
		if i > 0 {
			b.WriteString(", ")
		}
		base := i * postgresAuditColumns
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)

		var actor interface{}
		if e.ActorID != "" {
			actor = e.ActorID
		}
		args = append(args, actor, e.ActorRole, e.Action, e.Resource, e.Intent, e.Reason, e.RequestID, e.Timestamp)
	}

	if _, err := s.db.ExecContext(ctx, b.String(), args...); err != nil {
		return apperrors.NewAuditSinkFailedError(s.Name(), err)
	}
	return nil
}

// ClickHouseSink batch-inserts into an analytics table.
type ClickHouseSink struct {
	conn  driver.Conn
	table string
}

func NewClickHouseSink(conn driver.Conn, table string) *ClickHouseSink {
	if table == "" {
		table = "ai_audit_logs"
	}
	return &ClickHouseSink{conn: conn, table: table}
}

func (s *ClickHouseSink) Name() string { return "clickhouse" }

func (s *ClickHouseSink) WriteBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			request_id, timestamp, actor_id, actor_role,
			action, resource, intent, reason
		)
	`, s.table))
	if err != nil {
		return apperrors.NewAuditSinkFailedError(s.Name(), err)
	}

	for _, e := range events {
		if err := batch.Append(
			e.RequestID,
			e.Timestamp,
			e.ActorID,
			e.ActorRole,
			e.Action,
			e.Resource,
			e.Intent,
			e.Reason,
		); err != nil {
			return apperrors.NewAuditSinkFailedError(s.Name(), err).WithMetadata("requestId", e.RequestID)
		}
	}

	if err := batch.Send(); err != nil {
		return apperrors.NewAuditSinkFailedError(s.Name(), err).WithMetadata("batchSize", len(events))
	}
	return nil
}
