// internal/server/server_test.go
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pika-api/internal/common/config"
	stderrors "pika-api/internal/common/errors"
	"pika-api/internal/common/logger"
	"pika-api/internal/models"
	"pika-api/internal/orchestrator"
)

// ==========================
// Test Helper Functions
// ==========================

type stubHandler struct {
	result map[string]interface{}
	err    error
}

func (s *stubHandler) TaskType() string { return models.TaskTypeHealthMetrics }

func (s *stubHandler) Execute(_ context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func createTestServer(t *testing.T, handler orchestrator.TaskHandler) *Server {
	t.Helper()
	log := logger.NewTestLogger(t)
	orch := orchestrator.New(log, nil, nil)
	if handler != nil {
		orch.Register(handler)
	}
	cfg := &config.Config{}
	cfg.Server.Port = 0
	return New(cfg, orch, log)
}

func postJSON(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) *models.Response {
	t.Helper()
	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return &resp
}

// ==========================
// Endpoint Tests
// ==========================

func TestServer_HandleTask_Success(t *testing.T) {
	s := createTestServer(t, &stubHandler{
		result: map[string]interface{}{
			"date":          "2024-03-05",
			"original_path": "health_metrics/2024/03/img.png",
		},
	})

	rec := postJSON(t, s, "/pika", `{
		"mode": "structured",
		"task_type": "health_metrics",
		"parameters": {
			"storage_key": "c2VjcmV0LWtleQ==",
			"blob_path": "health_metrics/2024/03/img.png",
			"date": "2024-03-05"
		}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, models.TaskTypeHealthMetrics, resp.TaskType)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, "health_metrics/2024/03/img.png", resp.Data["original_path"])
	assert.Equal(t, rec.Header().Get("X-Request-ID"), resp.RequestID)
}

func TestServer_HandleTask_AliasRoute(t *testing.T) {
	s := createTestServer(t, &stubHandler{result: map[string]interface{}{}})

	rec := postJSON(t, s, "/api/pika", `{"mode":"structured","task_type":"health_metrics"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_HandleTask_MalformedJSON(t *testing.T) {
	s := createTestServer(t, &stubHandler{})

	rec := postJSON(t, s, "/pika", `{"mode": "structured",`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(stderrors.ErrCodeValidation), resp.Error.Code)
}

func TestServer_HandleTask_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing mode", body: `{"task_type":"health_metrics"}`},
		{name: "unknown mode", body: `{"mode":"telepathic"}`},
		{name: "unexpected field", body: `{"mode":"structured","task_type":"health_metrics","extra":1}`},
		{name: "parameters not an object", body: `{"mode":"structured","task_type":"health_metrics","parameters":"nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestServer(t, &stubHandler{})
			rec := postJSON(t, s, "/pika", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeResponse(t, rec)
			assert.False(t, resp.Success)
		})
	}
}

func TestServer_HandleTask_UnknownTaskType(t *testing.T) {
	s := createTestServer(t, nil)

	rec := postJSON(t, s, "/pika", `{"mode":"structured","task_type":"laundry"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(stderrors.ErrCodeInvalidTaskType), resp.Error.Code)
}

func TestServer_HandleTask_AuthFailureMapsTo401(t *testing.T) {
	s := createTestServer(t, &stubHandler{
		err: stderrors.NewStorageAuthenticationFailedError("health_metrics/2024/03/img.png"),
	})

	rec := postJSON(t, s, "/pika", `{"mode":"structured","task_type":"health_metrics"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(stderrors.ErrCodeStorageAuthenticationFailed), resp.Error.Code)
}

func TestServer_HandleTask_ServerSideFailureMapsTo500(t *testing.T) {
	s := createTestServer(t, &stubHandler{
		err: stderrors.NewNotesUpdateFailedError(assert.AnError),
	})

	rec := postJSON(t, s, "/pika", `{"mode":"structured","task_type":"health_metrics"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_HandleTask_RejectsGet(t *testing.T) {
	s := createTestServer(t, &stubHandler{})

	req := httptest.NewRequest(http.MethodGet, "/pika", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_HealthEndpoints(t *testing.T) {
	s := createTestServer(t, nil)

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, path)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body["status"])
	}
}
