// Package audit records access-gate denials without blocking the request path.
package audit

import "time"

const (
	ActionQueryDenied = "ai_query_denied"
)

// Event is append-only; nothing in the query path reads it back.
type Event struct {
	ActorID   string    `json:"actorId,omitempty"`
	ActorRole string    `json:"actorRole"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	Intent    string    `json:"intent"`
	Reason    string    `json:"reason"`
	RequestID string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}
