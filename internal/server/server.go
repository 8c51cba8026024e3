// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"pika-api/internal/common/config"
	stderrors "pika-api/internal/common/errors"
	"pika-api/internal/common/logger"
	"pika-api/internal/common/validation"
	"pika-api/internal/models"
	"pika-api/internal/orchestrator"
)

const maxBodyBytes = 1 << 20

// Server is the HTTP front of the orchestrator.
type Server struct {
	cfg        *config.Config
	orch       *orchestrator.Orchestrator
	logger     logger.Logger
	httpServer *http.Server
}

func New(cfg *config.Config, orch *orchestrator.Orchestrator, log logger.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		orch:   orch,
		logger: log,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	return s
}

// Handler assembles the route tree with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/pika", s.handleTask)
	mux.HandleFunc("/api/pika", s.handleTask)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	handler := s.withRequestLogging(mux)
	return cors.Default().Handler(handler)
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("API server listening", map[string]interface{}{
		"addr": s.httpServer.Addr,
	})
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeError(w, http.StatusMethodNotAllowed,
			stderrors.NewValidationError("only POST is supported"))
		return
	}

	var body map[string]interface{}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest,
			stderrors.NewValidationError("request body is not valid JSON"))
		return
	}

	result, err := validation.ValidateRequestEnvelope(body)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, stderrors.NewProcessingError(err.Error()))
		return
	}
	if !result.Valid {
		s.writeError(w, http.StatusBadRequest,
			stderrors.NewValidationError(fmt.Sprintf("invalid request: %v", result.GetErrorMessages())))
		return
	}

	req := decodeRequest(body)
	resp := s.orch.Handle(r.Context(), req)

	status := http.StatusOK
	if !resp.Success {
		status = stderrors.HTTPStatus(stderrors.ErrorCode(resp.Error.Code))
	}
	w.Header().Set("X-Request-ID", resp.RequestID)
	s.writeJSON(w, status, resp)
}

// decodeRequest maps the validated body onto the request struct. The schema
// has already checked the field types.
func decodeRequest(body map[string]interface{}) *models.PikaRequest {
	req := &models.PikaRequest{}
	req.Mode, _ = body["mode"].(string)
	req.TaskType, _ = body["task_type"].(string)
	req.Query, _ = body["query"].(string)
	req.Parameters, _ = body["parameters"].(map[string]interface{})
	return req
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, stdErr *stderrors.StandardError) {
	s.writeJSON(w, status, &models.Response{
		Success: false,
		Message: "Task processing failed",
		Error: &models.ResponseError{
			Code:    string(stdErr.Code),
			Message: stdErr.Message,
			Details: stdErr.Details,
		},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
