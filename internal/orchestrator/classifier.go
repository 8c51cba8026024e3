// internal/orchestrator/classifier.go
package orchestrator

import (
	"strings"

	"pika-api/internal/models"
)

// classifierRule pairs a lowercase keyword with the task type it selects.
type classifierRule struct {
	keyword  string
	taskType string
}

// classifierRules are matched in order; the first keyword contained in the
// query wins. Queries matching none of them are rejected rather than guessed
// at.
var classifierRules = []classifierRule{
	{"health", models.TaskTypeHealthMetrics},
	{"weight", models.TaskTypeHealthMetrics},
	{"body fat", models.TaskTypeHealthMetrics},
	{"bmi", models.TaskTypeHealthMetrics},
	{"scale", models.TaskTypeHealthMetrics},
	{"体重", models.TaskTypeHealthMetrics},
	{"体脂", models.TaskTypeHealthMetrics},
	{"健康", models.TaskTypeHealthMetrics},
}

// Classify resolves a natural-language query to a task type. The second
// return value is false when no keyword matches.
func Classify(query string) (string, bool) {
	lower := strings.ToLower(query)
	for _, rule := range classifierRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.taskType, true
		}
	}
	return "", false
}
