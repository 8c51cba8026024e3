// internal/tasks/healthmetrics/validation.go
package healthmetrics

import (
	"time"

	"pika-api/internal/common/dates"
	stderrors "pika-api/internal/common/errors"
	"pika-api/internal/common/validation"
)

// parseInput validates the raw parameter map and resolves the task date.
// A missing date defaults to now; a malformed one is rejected before any
// external call is made.
func parseInput(params map[string]interface{}, now func() time.Time) (*Input, error) {
	storageKey, _ := params["storage_key"].(string)
	if storageKey == "" {
		return nil, stderrors.NewMissingParameterError("storage_key")
	}
	if err := validation.ValidateStorageKey(storageKey); err != nil {
		return nil, stderrors.NewValidationError(err.Error())
	}

	blobPath, _ := params["blob_path"].(string)
	if blobPath == "" {
		return nil, stderrors.NewMissingParameterError("blob_path")
	}
	if err := validation.ValidateBlobPath(blobPath); err != nil {
		return nil, stderrors.NewValidationError(err.Error())
	}

	dateStr, _ := params["date"].(string)
	date, err := dates.ParseOrToday(dateStr, now)
	if err != nil {
		return nil, stderrors.NewValidationError(err.Error())
	}

	return &Input{
		StorageKey: storageKey,
		BlobPath:   blobPath,
		Date:       date,
	}, nil
}
