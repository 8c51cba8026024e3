// internal/models/health.go
package models

// HealthMetrics holds values extracted from a body-scale display photo.
// Weight is required and WeightUnit names the unit it was read in; the
// remaining fields stay nil when the scale did not show them or the reading
// was implausible.
type HealthMetrics struct {
	Weight     float64  `json:"weight"`
	WeightUnit string   `json:"weight_unit"`
	BodyFat    *float64 `json:"body_fat,omitempty"`
	MuscleRate *float64 `json:"muscle_rate,omitempty"`
	BMI        *float64 `json:"bmi,omitempty"`
}

// UpsertResult describes the outcome of writing metrics to the notes
// database.
type UpsertResult struct {
	PageID  string `json:"page_id"`
	Created bool   `json:"created"`
}
