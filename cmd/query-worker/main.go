// cmd/query-worker/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"agriserve-query/internal/api"
	"agriserve-query/internal/common/camunda"
	"agriserve-query/internal/common/config"
	"agriserve-query/internal/common/logger"
	"agriserve-query/internal/common/observability"
	smartquery "agriserve-query/internal/workers/ai-conversation/smart-query"
)

const shutdownTimeout = 30 * time.Second

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
	})

	zapLog.Info("Starting query worker...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("otel meter unavailable, query and job metrics disabled", zap.Error(err))
	}

	deps, err := connect(cfg, zapLog, log)
	if err != nil {
		zapLog.Fatal("dependency initialization failed", zap.Error(err))
	}
	defer deps.close(zapLog)

	eng := buildEngine(cfg, deps, obs, log)

	var worker *camunda.CamundaWorker
	if cfg.Camunda.Enabled && config.IsWorkerEnabled(cfg, smartquery.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, smartquery.TaskType)
		handler := smartquery.NewHandler(
			&smartquery.Config{Timeout: config.GetDuration(wcfg.Timeout)},
			eng, obs, log,
		)
		worker = camunda.NewWorker(deps.zeebe.GetClient(), smartquery.TaskType, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(cfg.Camunda.Timeout),
		}, handler, log)
		worker.Start()
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", smartquery.TaskType))
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           api.NewHandler(eng, deps.checks(), log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      config.GetDuration(cfg.Query.Timeout) + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if worker != nil {
		worker.Stop(ctx)
	}
	if err := srv.Shutdown(ctx); err != nil {
		zapLog.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	// no request can log a denial past this point
	deps.audit.Close()

	if err := obs.Shutdown(ctx); err != nil {
		zapLog.Warn("otel shutdown failed", zap.Error(err))
	}
	zapLog.Info("Query worker stopped")
}
