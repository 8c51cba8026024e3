// internal/tasks/healthmetrics/handler_test.go
package healthmetrics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pika-api/internal/clients/storage"
	stderrors "pika-api/internal/common/errors"
	"pika-api/internal/common/logger"
	"pika-api/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeBlobStore struct {
	data        []byte
	downloadErr error
	relocateErr error
	stall       bool // block downloads until the context is cancelled

	downloads   int
	relocations [][2]string
}

func (f *fakeBlobStore) Download(ctx context.Context, _, _ string) ([]byte, error) {
	f.downloads++
	if f.stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.data, nil
}

func (f *fakeBlobStore) Relocate(_ context.Context, _, fromPath, toPath string) error {
	f.relocations = append(f.relocations, [2]string{fromPath, toPath})
	return f.relocateErr
}

type fakeExtractor struct {
	metrics *models.HealthMetrics
	err     error

	calls    int
	gotImage []byte
}

func (f *fakeExtractor) Extract(_ context.Context, image []byte) (*models.HealthMetrics, error) {
	f.calls++
	f.gotImage = image
	if f.err != nil {
		return nil, f.err
	}
	return f.metrics, nil
}

type fakeNotes struct {
	result *models.UpsertResult
	err    error

	calls      int
	gotDate    time.Time
	gotMetrics *models.HealthMetrics
}

func (f *fakeNotes) UpsertHealthEntry(_ context.Context, date time.Time, m *models.HealthMetrics) (*models.UpsertResult, error) {
	f.calls++
	f.gotDate = date
	f.gotMetrics = m
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

var fixedNow = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

func floatPtr(v float64) *float64 { return &v }

func testMetrics() *models.HealthMetrics {
	return &models.HealthMetrics{
		Weight:     130.5,
		WeightUnit: "jin",
		BodyFat:    floatPtr(22.1),
		BMI:        floatPtr(21.3),
	}
}

func createTestHandler(t *testing.T, blobs *fakeBlobStore, extractor *fakeExtractor, notes *fakeNotes) *Handler {
	t.Helper()
	h := NewHandler(DefaultConfig(), blobs, extractor, notes, logger.NewTestLogger(t))
	h.now = func() time.Time { return fixedNow }
	return h
}

func validParams() map[string]interface{} {
	return map[string]interface{}{
		"storage_key": "c2VjcmV0LWtleS0xMjM0",
		"blob_path":   "health_metrics/2024/03/img.png",
		"date":        "2024-03-05",
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	blobs := &fakeBlobStore{data: []byte("image-bytes")}
	extractor := &fakeExtractor{metrics: testMetrics()}
	notes := &fakeNotes{result: &models.UpsertResult{PageID: "page-1", Created: true}}
	handler := createTestHandler(t, blobs, extractor, notes)

	result, err := handler.Execute(context.Background(), validParams())

	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", result["date"])
	assert.Equal(t, "health_metrics/2024/03/img.png", result["original_path"])
	metrics := result["metrics"].(*models.HealthMetrics)
	assert.Equal(t, "jin", metrics.WeightUnit)
	notesResult := result["notes_result"].(map[string]interface{})
	assert.Equal(t, "page-1", notesResult["id"])
	assert.Equal(t, "created", notesResult["status"])
	assert.Equal(t, "health_metrics/processed/2024/04/2024/03/img.png", result["processed_path"])
	assert.NotContains(t, result, "relocation_error")

	assert.Equal(t, []byte("image-bytes"), extractor.gotImage)
	assert.Equal(t, 1, notes.calls)
	require.Len(t, blobs.relocations, 1)
	assert.Equal(t, "health_metrics/2024/03/img.png", blobs.relocations[0][0])

	require.Equal(t, 2024, notes.gotDate.Year())
	assert.Equal(t, time.March, notes.gotDate.Month())
	assert.Equal(t, 5, notes.gotDate.Day())
	assert.Equal(t, testMetrics(), notes.gotMetrics)
}

func TestHandler_Execute_MissingDateDefaultsToToday(t *testing.T) {
	blobs := &fakeBlobStore{data: []byte("img")}
	extractor := &fakeExtractor{metrics: testMetrics()}
	notes := &fakeNotes{result: &models.UpsertResult{PageID: "page-2"}}
	handler := createTestHandler(t, blobs, extractor, notes)

	params := validParams()
	delete(params, "date")

	result, err := handler.Execute(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, "2024-04-01", result["date"])
	assert.True(t, fixedNow.Equal(notes.gotDate))
}

// ==========================
// Validation Tests
// ==========================

func TestHandler_Execute_ValidationFailures(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(params map[string]interface{})
		expectedCode stderrors.ErrorCode
	}{
		{
			name:         "missing storage_key",
			mutate:       func(p map[string]interface{}) { delete(p, "storage_key") },
			expectedCode: stderrors.ErrCodeValidation,
		},
		{
			name:         "storage_key with unsupported characters",
			mutate:       func(p map[string]interface{}) { p["storage_key"] = "bad key with spaces!" },
			expectedCode: stderrors.ErrCodeValidation,
		},
		{
			name:         "missing blob_path",
			mutate:       func(p map[string]interface{}) { delete(p, "blob_path") },
			expectedCode: stderrors.ErrCodeValidation,
		},
		{
			name:         "absolute blob_path",
			mutate:       func(p map[string]interface{}) { p["blob_path"] = "/etc/passwd" },
			expectedCode: stderrors.ErrCodeValidation,
		},
		{
			name:         "traversal in blob_path",
			mutate:       func(p map[string]interface{}) { p["blob_path"] = "health/../secrets/img.png" },
			expectedCode: stderrors.ErrCodeValidation,
		},
		{
			name:         "malformed date",
			mutate:       func(p map[string]interface{}) { p["date"] = "last tuesday" },
			expectedCode: stderrors.ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blobs := &fakeBlobStore{data: []byte("img")}
			extractor := &fakeExtractor{metrics: testMetrics()}
			notes := &fakeNotes{result: &models.UpsertResult{}}
			handler := createTestHandler(t, blobs, extractor, notes)

			params := validParams()
			tt.mutate(params)

			result, err := handler.Execute(context.Background(), params)

			require.Error(t, err)
			assert.Nil(t, result)
			stdErr := stderrors.AsStandardError(err)
			assert.Equal(t, tt.expectedCode, stdErr.Code)

			// No external call happens on invalid input.
			assert.Equal(t, 0, blobs.downloads)
			assert.Equal(t, 0, extractor.calls)
			assert.Equal(t, 0, notes.calls)
		})
	}
}

func TestHandler_Execute_MissingStorageKeyNamesParameter(t *testing.T) {
	handler := createTestHandler(t, &fakeBlobStore{}, &fakeExtractor{}, &fakeNotes{})

	params := validParams()
	delete(params, "storage_key")

	_, err := handler.Execute(context.Background(), params)

	require.Error(t, err)
	stdErr := stderrors.AsStandardError(err)
	assert.Contains(t, stdErr.Details, "storage_key")
}

// ==========================
// Pipeline Failure Tests
// ==========================

func TestHandler_Execute_DownloadFailure(t *testing.T) {
	blobs := &fakeBlobStore{downloadErr: fmt.Errorf("storage download failed: connection reset")}
	extractor := &fakeExtractor{}
	notes := &fakeNotes{}
	handler := createTestHandler(t, blobs, extractor, notes)

	_, err := handler.Execute(context.Background(), validParams())

	require.Error(t, err)
	stdErr := stderrors.AsStandardError(err)
	assert.Equal(t, stderrors.ErrCodeStorageDownloadFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, 0, extractor.calls)
	assert.Equal(t, 0, notes.calls)
}

func TestHandler_Execute_AuthenticationFailure(t *testing.T) {
	blobs := &fakeBlobStore{
		downloadErr: fmt.Errorf("download health_metrics/2024/03/img.png: %w", storage.ErrAuthentication),
	}
	handler := createTestHandler(t, blobs, &fakeExtractor{}, &fakeNotes{})

	_, err := handler.Execute(context.Background(), validParams())

	require.Error(t, err)
	stdErr := stderrors.AsStandardError(err)
	assert.Equal(t, stderrors.ErrCodeStorageAuthenticationFailed, stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestHandler_Execute_VisionFailure(t *testing.T) {
	blobs := &fakeBlobStore{data: []byte("img")}
	extractor := &fakeExtractor{err: fmt.Errorf("vision reply has no weight value")}
	notes := &fakeNotes{}
	handler := createTestHandler(t, blobs, extractor, notes)

	_, err := handler.Execute(context.Background(), validParams())

	require.Error(t, err)
	stdErr := stderrors.AsStandardError(err)
	assert.Equal(t, stderrors.ErrCodeVisionProcessingFailed, stdErr.Code)
	assert.Equal(t, 0, notes.calls)
	assert.Empty(t, blobs.relocations)
}

func TestHandler_Execute_NotesFailure(t *testing.T) {
	blobs := &fakeBlobStore{data: []byte("img")}
	extractor := &fakeExtractor{metrics: testMetrics()}
	notes := &fakeNotes{err: fmt.Errorf("notes database unavailable")}
	handler := createTestHandler(t, blobs, extractor, notes)

	_, err := handler.Execute(context.Background(), validParams())

	require.Error(t, err)
	stdErr := stderrors.AsStandardError(err)
	assert.Equal(t, stderrors.ErrCodeNotesUpdateFailed, stdErr.Code)

	// The blob stays where it was when the upsert failed.
	assert.Empty(t, blobs.relocations)
}

func TestHandler_Execute_TimeoutAbortsPipeline(t *testing.T) {
	blobs := &fakeBlobStore{stall: true}
	extractor := &fakeExtractor{metrics: testMetrics()}
	notes := &fakeNotes{result: &models.UpsertResult{PageID: "page-4"}}

	handler := NewHandler(&Config{Timeout: 20, MaxRetries: 3}, blobs, extractor, notes,
		logger.NewTestLogger(t))
	handler.now = func() time.Time { return fixedNow }

	_, err := handler.Execute(context.Background(), validParams())

	require.Error(t, err)
	stdErr := stderrors.AsStandardError(err)
	assert.Equal(t, stderrors.ErrCodeStorageDownloadFailed, stdErr.Code)

	// Nothing downstream of the expired download runs.
	assert.Equal(t, 0, extractor.calls)
	assert.Equal(t, 0, notes.calls)
	assert.Empty(t, blobs.relocations)
}

func TestHandler_Execute_RelocationFailureIsNonFatal(t *testing.T) {
	blobs := &fakeBlobStore{
		data:        []byte("img"),
		relocateErr: fmt.Errorf("copy denied"),
	}
	extractor := &fakeExtractor{metrics: testMetrics()}
	notes := &fakeNotes{result: &models.UpsertResult{PageID: "page-3", Created: false}}
	handler := createTestHandler(t, blobs, extractor, notes)

	result, err := handler.Execute(context.Background(), validParams())

	require.NoError(t, err)
	notesResult := result["notes_result"].(map[string]interface{})
	assert.Equal(t, "page-3", notesResult["id"])
	assert.Equal(t, "updated", notesResult["status"])
	assert.NotContains(t, result, "processed_path")
	assert.Contains(t, result["relocation_error"], "copy denied")
}

// ==========================
// Benchmarks
// ==========================

func BenchmarkHandler_Execute(b *testing.B) {
	blobs := &fakeBlobStore{data: []byte("img")}
	extractor := &fakeExtractor{metrics: testMetrics()}
	notes := &fakeNotes{result: &models.UpsertResult{PageID: "page-1"}}
	handler := NewHandler(DefaultConfig(), blobs, extractor, notes, logger.NewNoOpLogger())

	params := validParams()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = handler.Execute(context.Background(), params)
	}
}
