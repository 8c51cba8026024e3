// internal/models/request.go
package models

// Request modes accepted by the API.
const (
	ModeStructured = "structured"
	ModeNatural    = "natural"
)

// TaskTypeHealthMetrics is the only task type currently registered.
const TaskTypeHealthMetrics = "health_metrics"

// PikaRequest is the inbound request envelope.
//
// In structured mode task_type selects the handler directly; in natural mode
// the query text is classified into a task type first.
type PikaRequest struct {
	Mode       string                 `json:"mode"`
	TaskType   string                 `json:"task_type,omitempty"`
	Query      string                 `json:"query,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// Response is the outbound response envelope. Error is set only on failure,
// Data only on success.
type Response struct {
	Success   bool                   `json:"success"`
	Message   string                 `json:"message"`
	TaskType  string                 `json:"task_type,omitempty"`
	RequestID string                 `json:"request_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     *ResponseError         `json:"error,omitempty"`
}

// ResponseError is the serialized error surface. It carries the error code
// and a human-readable message, never credentials or stack traces.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
