// Package errors provides standardized error handling for task processing.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidTaskType ErrorCode = "INVALID_TASK_TYPE"

	ErrCodeStorageAuthenticationFailed ErrorCode = "STORAGE_AUTHENTICATION_FAILED"
	ErrCodeStorageDownloadFailed       ErrorCode = "STORAGE_DOWNLOAD_FAILED"

	ErrCodeVisionProcessingFailed ErrorCode = "VISION_PROCESSING_FAILED"
	ErrCodeNotesUpdateFailed      ErrorCode = "NOTES_UPDATE_FAILED"
	ErrCodeRelocationFailed       ErrorCode = "RELOCATION_FAILED"

	ErrCodeProcessing ErrorCode = "PROCESSING_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable request validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingParameterError creates a validation error naming the missing field.
func NewMissingParameterError(field string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   "Required parameter is missing",
		Details:   fmt.Sprintf("parameter: %s", field),
		Retryable: false,
		Metadata:  map[string]interface{}{"parameter": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTaskTypeError creates a non-retryable unknown task type error.
func NewInvalidTaskTypeError(taskType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTaskType,
		Message:   "Unsupported task type",
		Details:   fmt.Sprintf("taskType: %s", taskType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageAuthenticationFailedError creates a non-retryable credential error.
// The credential value itself must never end up in Details or Metadata.
func NewStorageAuthenticationFailedError(blobPath string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageAuthenticationFailed,
		Message:   "Storage authentication failed",
		Details:   fmt.Sprintf("blobPath: %s", blobPath),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageDownloadFailedError creates a retryable blob download error.
func NewStorageDownloadFailedError(blobPath string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageDownloadFailed,
		Message:   "Failed to download blob from storage",
		Details:   fmt.Sprintf("blobPath: %s, error: %s", blobPath, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewVisionProcessingFailedError creates a retryable vision extraction error.
func NewVisionProcessingFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeVisionProcessingFailed,
		Message:   "Vision model failed to extract metrics",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotesUpdateFailedError creates a retryable notes database error.
func NewNotesUpdateFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotesUpdateFailed,
		Message:   "Failed to upsert notes entry",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRelocationFailedError creates a retryable blob relocation error.
func NewRelocationFailedError(fromPath, toPath string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRelocationFailed,
		Message:   "Failed to relocate processed blob",
		Details:   fmt.Sprintf("from: %s, to: %s, error: %s", fromPath, toPath, err.Error()),
		Retryable: true,
		Metadata: map[string]interface{}{
			"from": fromPath,
			"to":   toPath,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewProcessingError creates a generic internal processing error.
func NewProcessingError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProcessing,
		Message:   "Internal processing error",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utilities
// ==========================

// AsStandardError extracts a *StandardError from an error chain, wrapping
// unknown errors as PROCESSING_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewProcessingError(err.Error())
}

// HTTPStatus maps an error code to the HTTP status of the API response.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidTaskType:
		return http.StatusBadRequest
	case ErrCodeStorageAuthenticationFailed:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable reports whether the error is worth retrying by the caller.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// IsAuthFailure reports whether an upstream error message looks like a
// credential rejection rather than a transient storage failure.
func IsAuthFailure(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range []string{
		"invalidaccesskeyid",
		"signaturedoesnotmatch",
		"accessdenied",
		"403",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
