// Package dates parses and formats the date strings used across task inputs
// and storage paths.
package dates

import (
	"fmt"
	"strings"
	"time"
)

// Accepted input layouts, tried in order.
var parseLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
}

// Parse converts a date string in one of the accepted layouts to a time.Time.
// An empty string and unknown layouts are errors; callers decide whether a
// missing date defaults to today.
func Parse(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("date string is empty")
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", trimmed)
}

// ParseOrToday parses value, defaulting to the current time when value is
// empty. A non-empty malformed value is still an error.
func ParseOrToday(value string, now func() time.Time) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return now(), nil
	}
	return Parse(value)
}

// ForFilename formats a timestamp for use inside generated blob names,
// e.g. 20240305_0815.
func ForFilename(t time.Time) string {
	return t.Format("20060102_1504")
}

// ForStoragePrefix formats a timestamp as the year/month prefix used in
// storage paths, e.g. 2024/03.
func ForStoragePrefix(t time.Time) string {
	return t.Format("2006/01")
}

// ForNotes formats a timestamp as the ISO date stored in the notes database.
func ForNotes(t time.Time) string {
	return t.Format("2006-01-02")
}
