// Package paths builds the blob paths used by the storage pipeline.
package paths

import (
	"strings"
	"time"

	"pika-api/internal/common/dates"
)

// BuildBlobPath assembles the canonical upload location for a task type,
// e.g. health_metrics/2024/03/20240305_0815.png. An empty filename gets a
// timestamp-based one.
func BuildBlobPath(taskType string, t time.Time, filename string) string {
	if filename == "" {
		filename = dates.ForFilename(t) + ".png"
	}
	return taskType + "/" + dates.ForStoragePrefix(t) + "/" + filename
}

// ProcessedPath derives the destination for a blob that has been processed.
// The processed/YYYY/MM segment is inserted after the first path segment,
// using the relocation time, so re-running a task on a different day yields a
// different destination. Paths with fewer than two segments get the prefix
// prepended instead.
func ProcessedPath(originalPath string, now time.Time) string {
	prefix := "processed/" + dates.ForStoragePrefix(now)

	parts := strings.Split(originalPath, "/")
	if len(parts) < 2 {
		return prefix + "/" + originalPath
	}

	rest := strings.Join(parts[1:], "/")
	return parts[0] + "/" + prefix + "/" + rest
}

// Filename returns the final segment of a blob path.
func Filename(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
