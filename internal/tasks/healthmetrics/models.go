// internal/tasks/healthmetrics/models.go
package healthmetrics

import (
	"time"

	"pika-api/internal/models"
)

// Input is the validated parameter set for one health metrics task.
type Input struct {
	StorageKey string
	BlobPath   string
	Date       time.Time
}

// Output is the task result. ProcessedPath is empty when relocation failed;
// RelocationError carries the reason in that case.
type Output struct {
	OriginalPath    string
	Date            string
	Metrics         *models.HealthMetrics
	NotesResult     *models.UpsertResult
	ProcessedPath   string
	RelocationError string
}

// ToResult flattens the output into the generic data map returned by the API.
func (o *Output) ToResult() map[string]interface{} {
	status := "updated"
	if o.NotesResult.Created {
		status = "created"
	}

	result := map[string]interface{}{
		"original_path": o.OriginalPath,
		"date":          o.Date,
		"metrics":       o.Metrics,
		"notes_result": map[string]interface{}{
			"status": status,
			"id":     o.NotesResult.PageID,
		},
	}
	if o.ProcessedPath != "" {
		result["processed_path"] = o.ProcessedPath
	}
	if o.RelocationError != "" {
		result["relocation_error"] = o.RelocationError
	}
	return result
}
