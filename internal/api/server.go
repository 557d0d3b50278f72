// Package api serves the smart query engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agriserve-query/internal/common/logger"
	"agriserve-query/internal/models"
)

const (
	maxBodyBytes  = 64 << 10
	checkTimeout  = 2 * time.Second
	statusReady   = "ready"
	statusUnready = "not_ready"
)

// Engine answers one message. *engine.Engine satisfies it.
type Engine interface {
	SmartQuery(ctx context.Context, message string, caller models.CallerContext) models.QueryResult
}

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

type Handler struct {
	engine Engine
	checks map[string]Check
	log    logger.Logger
}

func NewHandler(engine Engine, checks map[string]Check, log logger.Logger) *Handler {
	return &Handler{engine: engine, checks: checks, log: log}
}

// Router builds the chi router with every route mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers query routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/query", h.Query)
	})
}

// Ready runs every dependency check and answers 503 when any fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	status := statusReady
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = statusUnready
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	code := http.StatusOK
	if status != statusReady {
		code = http.StatusServiceUnavailable
		h.log.Warn("readiness check failed", map[string]interface{}{"checks": results})
	}
	JSON(w, code, map[string]interface{}{"status": status, "checks": results})
}

// JSON writes a JSON response.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Debug("http request", map[string]interface{}{
				"requestId":  chiMiddleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"durationMs": time.Since(start).Milliseconds(),
			})
		})
	}
}
