// internal/workers/product-query/agent-manager/handler.go
package agentmanager

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "product-query-router/internal/common/errors"
	"product-query-router/internal/common/logger"
	"product-query-router/internal/common/metrics"
	"product-query-router/internal/common/observability"
	"product-query-router/internal/models"
)

const (
	TaskType = "handle-product-query"
)

var ErrEmptyQueryText = errors.New("job variable text is empty")

// JobHandler serves handle-product-query jobs by running one pipeline turn
// per job.
type JobHandler struct {
	config       *JobConfig
	manager      *Manager
	errorHandler *apperrors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

func NewJobHandler(config *JobConfig, manager *Manager, obs *observability.Observability, log logger.Logger) *JobHandler {
	if config == nil {
		config = NewJobConfig(manager.config.QueryTimeout)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &JobHandler{
		config:       config,
		manager:      manager,
		errorHandler: apperrors.NewErrorHandler(log),
		obs:          obs,
		logger:       log,
	}
}

// Timeout is the deadline given to each job.
func (h *JobHandler) Timeout() time.Duration {
	return h.config.Timeout
}

func (h *JobHandler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	log := h.logger.With(map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	log.Info("processing job", nil)

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, job.Variables)
	if err != nil {
		code := string(apperrors.ErrCodeInternal)
		if stdErr, ok := apperrors.AsStandardError(err); ok {
			code = string(stdErr.Code)
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
		h.recordJob(ctx, "failed", start)
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		h.recordJob(ctx, "failed", start)
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInternalError(err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		log.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		h.recordJob(ctx, "failed", start)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.recordJob(ctx, "completed", start)
	log.Info("job completed", map[string]interface{}{
		"queryId": output.QueryID,
		"intent":  string(output.Intent),
	})
}

// execute decodes the job variables and runs the turn. Only malformed
// variables fail the job; pipeline failures are answered in the output.
func (h *JobHandler) execute(ctx context.Context, variables string) (*JobOutput, error) {
	var input JobInput
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInvalidJobVariablesError(err)
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, apperrors.NewInvalidJobVariablesError(ErrEmptyQueryText)
	}

	query := models.NewQuery(input.Text, input.UserID, input.Timestamp)
	resp := h.manager.Handle(ctx, query)

	return &JobOutput{
		QueryID:      query.ID,
		ResponseText: resp.Text,
		Media:        resp.Media,
		Intent:       resp.Intent,
	}, nil
}

func (h *JobHandler) recordJob(ctx context.Context, status string, start time.Time) {
	elapsed := time.Since(start)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(elapsed.Seconds())
	h.obs.RecordJobProcessed(ctx, status)
	h.obs.RecordJobDuration(ctx, elapsed, status)
}
