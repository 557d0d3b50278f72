package smartquery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "agriserve-query/internal/common/errors"
	"agriserve-query/internal/common/logger"
	"agriserve-query/internal/common/metrics"
	"agriserve-query/internal/common/validation"
	"agriserve-query/internal/models"
)

const (
	TaskType = "smart-query"

	failTimeout = 10 * time.Second
)

// Engine answers one message. *engine.Engine satisfies it.
type Engine interface {
	SmartQuery(ctx context.Context, message string, caller models.CallerContext) models.QueryResult
}

// JobRecorder receives one status per finished job. *observability.Observability satisfies it.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, status string)
}

type Handler struct {
	config   *Config
	engine   Engine
	errors   *apperrors.JobErrorHandler
	recorder JobRecorder
	logger   logger.Logger
}

func NewHandler(config *Config, engine Engine, recorder JobRecorder, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = log.WithFields(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:   config,
		engine:   engine,
		errors:   apperrors.NewJobErrorHandler(log),
		recorder: recorder,
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := ParseInput(job.Variables)
	if err != nil {
		return h.failJob(client, job, err, start)
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		return h.failJob(client, job, err, start)
	}

	if err := h.completeJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		h.recordFailure(ctx, err, start)
		return err
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	if h.recorder != nil {
		h.recorder.RecordJobProcessed(ctx, "completed")
	}
	return nil
}

// ParseInput validates the job variables against the smart query schema
// before decoding them. Violations are INPUT_VALIDATION_FAILED errors.
func ParseInput(variables string) (*Input, error) {
	if variables == "" {
		variables = "{}"
	}
	if res := validation.SmartQueryInput.Validate([]byte(variables)); !res.Valid {
		return nil, apperrors.NewInputValidationFailedError(res.Summary())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInputValidationFailedError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

// Execute answers the message. The engine never fails, so the only error is
// a cancelled context.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	caller := models.AnonymousCaller()
	if input.Caller != nil {
		caller = *input.Caller
	}

	result := h.engine.SmartQuery(ctx, input.Message, caller)
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewQueryTimeoutError(result.QueryType)
	}

	h.logger.Info("smart query answered", map[string]interface{}{
		"queryType":  result.QueryType,
		"hasContext": result.HasContext,
		"sources":    len(result.Sources),
	})
	return &Output{QueryResult: result}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("encode job variables: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("send complete job: %w", err)
	}
	h.logger.Info("job completed", map[string]interface{}{"jobKey": job.Key})
	return nil
}

// failJob reports on a fresh context so an expired job deadline does not
// swallow the failure.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error, start time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), failTimeout)
	defer cancel()

	h.recordFailure(ctx, err, start)
	return h.errors.HandleJobError(ctx, client, job, err)
}

func (h *Handler) recordFailure(ctx context.Context, err error, start time.Time) {
	code := string(apperrors.AsStandardError(err).Code)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	if h.recorder != nil {
		h.recorder.RecordJobProcessed(ctx, "failed")
	}
}
