// internal/workers/matching/run-matching-batch/handler.go
package runmatchingbatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loan-matching-workers/internal/common/logger"
	"loan-matching-workers/internal/common/metrics"
	"loan-matching-workers/internal/common/observability"
	"loan-matching-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/xeipuuv/gojsonschema"
)

const (
	TaskType = "run-matching-batch"
)

// inputSchema rejects malformed trigger payloads before any work starts.
const inputSchema = `{
	"type": "object",
	"properties": {
		"triggeredBy": {"type": "string"},
		"reason": {"type": "string"}
	},
	"additionalProperties": true
}`

// BatchRunner executes one full matching batch and returns its summary.
type BatchRunner interface {
	Run(ctx context.Context) (*models.BatchSummary, error)
}

type Handler struct {
	config *Config
	runner BatchRunner
	obs    *observability.Observability
	logger logger.Logger
}

func NewHandler(config *Config, runner BatchRunner, obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		runner: runner,
		obs:    obs,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	started := time.Now()

	input, err := parseInput(job.Variables)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "BATCH_INPUT_INVALID").Inc()
		h.failJob(client, job, "BATCH_INPUT_INVALID", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, input)

	duration := time.Since(started)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(duration.Seconds())

	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "MATCHING_BATCH_FAILED").Inc()
		if h.obs != nil {
			h.obs.RecordJobProcessed(ctx, "failed")
			h.obs.RecordJobDuration(ctx, duration, "failed")
		}
		h.failJob(client, job, "MATCHING_BATCH_FAILED", err.Error())
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.BatchUsersProcessed.WithLabelValues(string(output.BatchStatus)).Add(float64(output.UsersProcessed))
	metrics.BatchMatchesWritten.WithLabelValues("created").Add(float64(output.MatchesCreated))
	metrics.BatchMatchesWritten.WithLabelValues("updated").Add(float64(output.MatchesUpdated))
	if h.obs != nil {
		h.obs.RecordJobProcessed(ctx, "completed")
		h.obs.RecordJobDuration(ctx, duration, "completed")
		h.obs.RecordBatchOutcome(ctx, output.UsersProcessed, output.MatchesCreated, output.MatchesUpdated, string(output.BatchStatus))
	}

	h.completeJob(client, job, output)
}

// Execute runs the batch and shapes its summary into the job output.
// Exported so tests can drive it without a Zeebe broker.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	h.logger.Info("starting matching batch", map[string]interface{}{
		"triggeredBy": input.TriggeredBy,
	})

	summary, err := h.runner.Run(ctx)
	if err != nil {
		return nil, err
	}

	return &Output{
		BatchID:        summary.BatchID,
		BatchStatus:    summary.Status,
		UsersProcessed: summary.UsersProcessed,
		PairsEvaluated: summary.PairsEvaluated,
		MatchesCreated: summary.MatchesCreated,
		MatchesUpdated: summary.MatchesUpdated,
		ErrorCount:     len(summary.Errors),
	}, nil
}

func parseInput(variables string) (*Input, error) {
	if variables == "" {
		variables = "{}"
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(inputSchema),
		gojsonschema.NewStringLoader(variables),
	)
	if err != nil {
		return nil, fmt.Errorf("validate input: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("invalid input: %v", result.Errors())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	return &input, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}
