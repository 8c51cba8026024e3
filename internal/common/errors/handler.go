// internal/common/errors/handler.go
package errors

// ErrorHandler normalizes task errors and logs them with a consistent shape.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleTaskError normalizes any error to a StandardError and logs it.
// The returned error is safe to serialize into an API response: details of
// unknown errors are preserved, credentials never flow through this path.
func (h *ErrorHandler) HandleTaskError(taskType string, err error) *StandardError {
	stdErr := AsStandardError(err)

	h.logger.Error("Task failed", map[string]interface{}{
		"taskType":   taskType,
		"errorCode":  string(stdErr.Code),
		"message":    stdErr.Message,
		"details":    stdErr.Details,
		"retryable":  stdErr.Retryable,
		"httpStatus": HTTPStatus(stdErr.Code),
	})

	return stdErr
}
