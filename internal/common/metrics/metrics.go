// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartquery_requests_total",
			Help: "Smart queries answered, by resolved intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smartquery_duration_seconds",
			Help:    "End-to-end smart query latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"intent"},
	)

	RBACDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartquery_rbac_denials_total",
			Help: "Requests short-circuited by the access gate",
		},
		[]string{"intent", "resource"},
	)

	EmbeddingCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartquery_embedding_cache_total",
			Help: "Embedding cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)

	VectorFallback = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartquery_vector_fallback_total",
			Help: "Vector search outcomes by stage (kb_hits, no_hits, embedding_failed, search_failed)",
		},
		[]string{"stage"},
	)

	AuditEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smartquery_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full",
		},
	)

	AuditSinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartquery_audit_sink_failures_total",
			Help: "Audit batches the sink failed to persist",
		},
		[]string{"sink"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
