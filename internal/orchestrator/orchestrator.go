// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	stderrors "pika-api/internal/common/errors"
	"pika-api/internal/common/logger"
	"pika-api/internal/common/metrics"
	"pika-api/internal/common/observability"
	"pika-api/internal/models"
)

// TaskHandler executes one task type against a raw parameter map.
type TaskHandler interface {
	TaskType() string
	Execute(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)
}

// Notifier is told about failed tasks. It must never fail the request.
type Notifier interface {
	NotifyTaskFailure(ctx context.Context, taskType, errorCode, details string)
}

// Orchestrator routes requests to task handlers. Structured requests name
// their task type directly; natural requests are classified first.
type Orchestrator struct {
	handlers     map[string]TaskHandler
	errorHandler *stderrors.ErrorHandler
	notifier     Notifier
	obs          *observability.Observability
	logger       logger.Logger
}

func New(log logger.Logger, obs *observability.Observability, notifier Notifier) *Orchestrator {
	return &Orchestrator{
		handlers:     make(map[string]TaskHandler),
		errorHandler: stderrors.NewErrorHandler(log),
		notifier:     notifier,
		obs:          obs,
		logger:       log,
	}
}

// Register adds a handler for its task type. Later registrations replace
// earlier ones.
func (o *Orchestrator) Register(h TaskHandler) {
	o.handlers[h.TaskType()] = h
}

// Handle processes one request end to end and always returns a response;
// panics in handlers become PROCESSING_ERROR responses.
func (o *Orchestrator) Handle(ctx context.Context, req *models.PikaRequest) (resp *models.Response) {
	requestID := uuid.NewString()
	log := o.logger.WithFields(map[string]interface{}{"requestId": requestID})

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic during task processing", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
			resp = o.failure(requestID, "", stderrors.NewProcessingError("unexpected internal error"))
		}
	}()

	taskType, params, stdErr := o.resolve(req, log)
	if stdErr != nil {
		return o.failure(requestID, taskType, stdErr)
	}

	handler, exists := o.handlers[taskType]
	if !exists {
		return o.failure(requestID, taskType, stderrors.NewInvalidTaskTypeError(taskType))
	}

	log.Info("dispatching task", map[string]interface{}{
		"taskType": taskType,
		"mode":     req.Mode,
	})

	start := time.Now()
	result, err := handler.Execute(ctx, params)
	elapsed := time.Since(start)
	metrics.TaskDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())

	if err != nil {
		stdErr := o.errorHandler.HandleTaskError(taskType, err)
		metrics.TasksFailed.WithLabelValues(taskType, string(stdErr.Code)).Inc()
		o.record(ctx, taskType, elapsed, "failed")

		if o.notifier != nil && stderrors.HTTPStatus(stdErr.Code) >= 500 {
			o.notifier.NotifyTaskFailure(ctx, taskType, string(stdErr.Code), stdErr.Details)
		}
		return o.failure(requestID, taskType, stdErr)
	}

	metrics.TasksCompleted.WithLabelValues(taskType).Inc()
	o.record(ctx, taskType, elapsed, "completed")

	return &models.Response{
		Success:   true,
		Message:   "Task completed successfully",
		TaskType:  taskType,
		RequestID: requestID,
		Data:      result,
	}
}

// record forwards task outcomes to the otel meter when one is configured.
func (o *Orchestrator) record(ctx context.Context, taskType string, elapsed time.Duration, status string) {
	if o.obs == nil {
		return
	}
	o.obs.RecordTaskProcessed(ctx, taskType, status)
	o.obs.RecordTaskDuration(ctx, taskType, elapsed, status)
}

// resolve determines the task type and parameter map for a request.
func (o *Orchestrator) resolve(req *models.PikaRequest, log logger.Logger) (string, map[string]interface{}, *stderrors.StandardError) {
	params := make(map[string]interface{}, len(req.Parameters)+1)
	for k, v := range req.Parameters {
		params[k] = v
	}

	switch req.Mode {
	case models.ModeStructured:
		if req.TaskType == "" {
			return "", nil, stderrors.NewValidationError("task_type is required in structured mode")
		}
		return req.TaskType, params, nil

	case models.ModeNatural:
		if req.Query == "" {
			return "", nil, stderrors.NewValidationError("query is required in natural mode")
		}
		taskType, ok := Classify(req.Query)
		if !ok {
			log.Warn("query did not match any task type", map[string]interface{}{
				"queryLength": len(req.Query),
			})
			return "", nil, stderrors.NewInvalidTaskTypeError("unclassified query")
		}
		params["query"] = req.Query
		return taskType, params, nil

	default:
		return "", nil, stderrors.NewValidationError(fmt.Sprintf("unsupported mode: %s", req.Mode))
	}
}

func (o *Orchestrator) failure(requestID, taskType string, stdErr *stderrors.StandardError) *models.Response {
	return &models.Response{
		Success:   false,
		Message:   "Task processing failed",
		TaskType:  taskType,
		RequestID: requestID,
		Error: &models.ResponseError{
			Code:    string(stdErr.Code),
			Message: stdErr.Message,
			Details: stdErr.Details,
		},
	}
}
