// internal/tasks/healthmetrics/handler.go
package healthmetrics

import (
	"context"
	"errors"
	"time"

	"pika-api/internal/clients/storage"
	"pika-api/internal/common/dates"
	stderrors "pika-api/internal/common/errors"
	"pika-api/internal/common/logger"
	"pika-api/internal/common/metrics"
	"pika-api/internal/common/paths"
	"pika-api/internal/models"
)

const TaskType = "health_metrics"

// BlobStore is the slice of the object store the pipeline needs.
type BlobStore interface {
	Download(ctx context.Context, storageKey, blobPath string) ([]byte, error)
	Relocate(ctx context.Context, storageKey, fromPath, toPath string) error
}

// MetricsExtractor turns a scale photo into structured metrics.
type MetricsExtractor interface {
	Extract(ctx context.Context, image []byte) (*models.HealthMetrics, error)
}

// NotesStore upserts one metrics row per date.
type NotesStore interface {
	UpsertHealthEntry(ctx context.Context, date time.Time, m *models.HealthMetrics) (*models.UpsertResult, error)
}

type Handler struct {
	config    *Config
	blobs     BlobStore
	extractor MetricsExtractor
	notes     NotesStore
	logger    logger.Logger
	now       func() time.Time
}

func NewHandler(config *Config, blobs BlobStore, extractor MetricsExtractor, notes NotesStore, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		blobs:     blobs,
		extractor: extractor,
		notes:     notes,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:       time.Now,
	}
}

func (h *Handler) TaskType() string {
	return TaskType
}

// Execute validates the parameters and runs the pipeline, returning the
// generic result map for the API response.
func (h *Handler) Execute(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	input, err := parseInput(params, h.now)
	if err != nil {
		return nil, err
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(h.config.Timeout)*time.Millisecond)
		defer cancel()
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		return nil, err
	}
	return output.ToResult(), nil
}

// execute runs download, extraction, upsert and relocation in order. Only
// relocation failure is non-fatal: by then the metrics are saved, so the
// result reports success with a relocation_error instead.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	h.logger.Info("processing task", map[string]interface{}{
		"blobPath": input.BlobPath,
		"date":     dates.ForNotes(input.Date),
	})

	image, err := h.timedStage(ctx, "download", func(ctx context.Context) ([]byte, error) {
		return h.blobs.Download(ctx, input.StorageKey, input.BlobPath)
	})
	if err != nil {
		if errors.Is(err, storage.ErrAuthentication) {
			return nil, stderrors.NewStorageAuthenticationFailedError(input.BlobPath)
		}
		return nil, stderrors.NewStorageDownloadFailedError(input.BlobPath, err)
	}

	var extracted *models.HealthMetrics
	_, err = h.timedStage(ctx, "vision", func(ctx context.Context) ([]byte, error) {
		var extractErr error
		extracted, extractErr = h.extractor.Extract(ctx, image)
		return nil, extractErr
	})
	if err != nil {
		return nil, stderrors.NewVisionProcessingFailedError(err.Error())
	}

	var upsert *models.UpsertResult
	_, err = h.timedStage(ctx, "notes_upsert", func(ctx context.Context) ([]byte, error) {
		var upsertErr error
		upsert, upsertErr = h.notes.UpsertHealthEntry(ctx, input.Date, extracted)
		return nil, upsertErr
	})
	if err != nil {
		return nil, stderrors.NewNotesUpdateFailedError(err)
	}

	output := &Output{
		OriginalPath: input.BlobPath,
		Date:         dates.ForNotes(input.Date),
		Metrics:      extracted,
		NotesResult:  upsert,
	}

	destination := paths.ProcessedPath(input.BlobPath, h.now())
	_, err = h.timedStage(ctx, "relocate", func(ctx context.Context) ([]byte, error) {
		return nil, h.blobs.Relocate(ctx, input.StorageKey, input.BlobPath, destination)
	})
	if err != nil {
		relocErr := stderrors.NewRelocationFailedError(input.BlobPath, destination, err)
		metrics.BlobRelocationFailures.WithLabelValues(TaskType).Inc()
		h.logger.Warn("blob relocation failed after successful upsert", map[string]interface{}{
			"blobPath":    input.BlobPath,
			"destination": destination,
			"error":       err.Error(),
		})
		output.RelocationError = relocErr.Details
		return output, nil
	}
	output.ProcessedPath = destination

	h.logger.Info("task completed", map[string]interface{}{
		"blobPath":      input.BlobPath,
		"notesPageId":   upsert.PageID,
		"created":       upsert.Created,
		"processedPath": destination,
	})
	return output, nil
}

func (h *Handler) timedStage(ctx context.Context, stage string, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	start := time.Now()
	out, err := fn(ctx)
	metrics.PipelineStageDuration.WithLabelValues(TaskType, stage).Observe(time.Since(start).Seconds())
	return out, err
}
