package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidTaskType, http.StatusBadRequest},
		{ErrCodeStorageAuthenticationFailed, http.StatusUnauthorized},
		{ErrCodeStorageDownloadFailed, http.StatusInternalServerError},
		{ErrCodeVisionProcessingFailed, http.StatusInternalServerError},
		{ErrCodeNotesUpdateFailed, http.StatusInternalServerError},
		{ErrCodeRelocationFailed, http.StatusInternalServerError},
		{ErrCodeProcessing, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestAsStandardError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Nil(t, AsStandardError(nil))
	})

	t.Run("passes through a StandardError", func(t *testing.T) {
		orig := NewValidationError("bad input")
		got := AsStandardError(orig)
		assert.Same(t, orig, got)
	})

	t.Run("unwraps a wrapped StandardError", func(t *testing.T) {
		orig := NewNotesUpdateFailedError(fmt.Errorf("timeout"))
		got := AsStandardError(fmt.Errorf("pipeline stage failed: %w", orig))
		assert.Same(t, orig, got)
	})

	t.Run("wraps unknown errors as processing errors", func(t *testing.T) {
		got := AsStandardError(fmt.Errorf("something broke"))
		require.NotNil(t, got)
		assert.Equal(t, ErrCodeProcessing, got.Code)
		assert.True(t, got.Retryable)
		assert.Contains(t, got.Details, "something broke")
	})
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(NewValidationError("x")))
	assert.False(t, IsRetryable(NewStorageAuthenticationFailedError("a/b.png")))
	assert.True(t, IsRetryable(NewStorageDownloadFailedError("a/b.png", fmt.Errorf("timeout"))))
	assert.True(t, IsRetryable(NewVisionProcessingFailedError("unreadable")))
	assert.False(t, IsRetryable(fmt.Errorf("plain error")))
}

func TestIsAuthFailure(t *testing.T) {
	assert.True(t, IsAuthFailure("api error InvalidAccessKeyId: the key does not exist"))
	assert.True(t, IsAuthFailure("api error SignatureDoesNotMatch"))
	assert.True(t, IsAuthFailure("AccessDenied: not allowed"))
	assert.True(t, IsAuthFailure("unexpected status 403"))
	assert.False(t, IsAuthFailure("connection refused"))
	assert.False(t, IsAuthFailure("NoSuchKey: object missing"))
}

func TestNewMissingParameterError(t *testing.T) {
	err := NewMissingParameterError("storage_key")

	assert.Equal(t, ErrCodeValidation, err.Code)
	assert.Equal(t, "parameter: storage_key", err.Details)
	assert.Equal(t, "storage_key", err.Metadata["parameter"])
	assert.False(t, err.Retryable)
}

func TestStandardError_Error(t *testing.T) {
	err := NewInvalidTaskTypeError("grocery_list")
	assert.Equal(t, "StandardError[INVALID_TASK_TYPE]: Unsupported task type", err.Error())
}
