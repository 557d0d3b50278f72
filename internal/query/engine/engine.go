// Package engine is the single entry point of the smart query path: it
// classifies a message, applies the access gate, runs the handler and
// optionally enriches the result with nearby equipment.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"agriserve-query/internal/audit"
	apperrors "agriserve-query/internal/common/errors"
	"agriserve-query/internal/common/logger"
	"agriserve-query/internal/common/metrics"
	"agriserve-query/internal/models"
	"agriserve-query/internal/query/format"
	"agriserve-query/internal/query/geo"
	"agriserve-query/internal/query/handlers"
	"agriserve-query/internal/query/intent"
	"agriserve-query/internal/query/knowledge"
	"agriserve-query/internal/query/rbac"
	"agriserve-query/internal/query/store"
)

const DefaultTimeout = 15 * time.Second

// Outcome labels for smartquery_requests_total.
const (
	OutcomeAnswered = "answered"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
	OutcomeDenied   = "denied"
	OutcomePanic    = "panic"
)

// Auditor receives one event per gate denial. *audit.Logger satisfies it.
type Auditor interface {
	Log(event audit.Event) bool
}

// Recorder mirrors per-query outcomes into OpenTelemetry.
// *observability.Observability satisfies it.
type Recorder interface {
	RecordQuery(ctx context.Context, intent, outcome string, duration time.Duration)
}

type Deps struct {
	Store    store.Store
	Embedder handlers.Embedder
	Searcher knowledge.Searcher
	Geo      *geo.Enricher
	Audit    Auditor
	Recorder Recorder
	Log      logger.Logger
}

type Options struct {
	Timeout  time.Duration
	Handlers handlers.Options
	// Now and NewRequestID are overridable for tests.
	Now          func() time.Time
	NewRequestID func() string
}

// Engine is safe for concurrent use; it holds no per-request state.
type Engine struct {
	detector *intent.Detector
	gate     *rbac.Gate
	handlers *handlers.Handlers
	geo      *geo.Enricher
	audit    Auditor
	recorder Recorder
	timeout  time.Duration
	now      func() time.Time
	newID    func() string
	log      logger.Logger
}

func New(deps Deps, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRequestID == nil {
		opts.NewRequestID = uuid.NewString
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if deps.Log == nil {
		deps.Log = logger.NewNoOpLogger()
	}
	return &Engine{
		detector: intent.NewDetector(),
		gate:     rbac.NewGate(),
		handlers: handlers.New(deps.Store, deps.Embedder, deps.Searcher, opts.Handlers, opts.Now, deps.Log),
		geo:      deps.Geo,
		audit:    deps.Audit,
		recorder: deps.Recorder,
		timeout:  opts.Timeout,
		now:      opts.Now,
		newID:    opts.NewRequestID,
		log:      deps.Log,
	}
}

// NormalizeCaller fills in the guest role when the host supplied none.
func NormalizeCaller(c models.CallerContext) models.CallerContext {
	if c.ActiveRole == "" {
		c.ActiveRole = models.RoleGuest
	}
	if len(c.Roles) == 0 {
		c.Roles = []models.Role{c.ActiveRole}
	}
	return c
}

// SmartQuery answers message for caller. It always returns a result; store
// failures, timeouts and panics surface as error results.
func (e *Engine) SmartQuery(ctx context.Context, message string, caller models.CallerContext) models.QueryResult {
	in := e.detector.Detect(message)
	return e.answer(ctx, in, message, NormalizeCaller(caller))
}

func (e *Engine) answer(ctx context.Context, in intent.Intent, message string, caller models.CallerContext) (res models.QueryResult) {
	start := e.now()
	reqCtx := ctx
	requestID := e.newID()
	kind := string(in.Kind)
	log := e.log.With(map[string]interface{}{
		"requestId": requestID,
		"intent":    kind,
	})

	outcome := OutcomeAnswered
	defer func() {
		if r := recover(); r != nil {
			log.Error("smart query panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
			res = format.ErrorResult(kind, "Unexpected error while processing the query")
			outcome = OutcomePanic
		}
		metrics.QueryRequests.WithLabelValues(kind, outcome).Inc()
		elapsed := e.now().Sub(start)
		metrics.QueryDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
		if e.recorder != nil {
			e.recorder.RecordQuery(reqCtx, kind, outcome, elapsed)
		}
	}()

	if decision := e.gate.Check(in.Kind, caller); !decision.Allowed {
		outcome = OutcomeDenied
		return e.deny(in.Kind, caller, decision, requestID, start, log)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	res = e.handlers.Dispatch(ctx, in, message, caller)
	if format.IsErrorResult(res) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res = format.ErrorResult(kind, apperrors.NewQueryTimeoutError(kind).Message)
	}
	res = e.geo.Enrich(ctx, in.Kind, caller, res)

	switch {
	case format.IsErrorResult(res):
		outcome = OutcomeError
	case !res.HasContext:
		outcome = OutcomeEmpty
	}
	log.Info("smart query answered", map[string]interface{}{
		"outcome":    outcome,
		"hasContext": res.HasContext,
		"sources":    len(res.Sources),
		"durationMs": e.now().Sub(start).Milliseconds(),
	})
	return res
}

// deny records exactly one audit event and builds the refusal. Personal kinds
// without a user get the sign-in prompt instead of the gate's reason.
func (e *Engine) deny(k intent.Kind, caller models.CallerContext, decision models.AccessDecision, requestID string, at time.Time, log logger.Logger) models.QueryResult {
	table, _ := e.gate.TableFor(k)
	metrics.RBACDenials.WithLabelValues(string(k), string(table)).Inc()

	event := audit.Event{
		ActorID:   caller.UserID,
		ActorRole: string(caller.ActiveRole),
		Action:    audit.ActionQueryDenied,
		Resource:  string(table),
		Intent:    string(k),
		Reason:    decision.Reason,
		RequestID: requestID,
		Timestamp: at,
	}
	if e.audit == nil || !e.audit.Log(event) {
		log.Warn("access denial not audited", map[string]interface{}{"resource": string(table)})
	}
	log.Info("smart query denied", map[string]interface{}{
		"resource": string(table),
		"reason":   decision.Reason,
	})

	if k.Personal() && caller.UserID == "" {
		return handlers.AuthRequired(k)
	}
	return format.Denied(string(k), decision.Reason)
}
