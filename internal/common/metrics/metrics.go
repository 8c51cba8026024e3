// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pika_tasks_completed_total",
			Help: "Total number of tasks completed by handler",
		},
		[]string{"task_type"},
	)

	TasksFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pika_tasks_failed_total",
			Help: "Total number of tasks failed by handler",
		},
		[]string{"task_type", "error_code"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pika_task_duration_seconds",
			Help: "Duration of task processing in seconds",
		},
		[]string{"task_type"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pika_pipeline_stage_duration_seconds",
			Help: "Duration of individual pipeline stages in seconds",
		},
		[]string{"task_type", "stage"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pika_http_requests_total",
			Help: "Total number of API requests by status code",
		},
		[]string{"path", "status"},
	)

	BlobRelocationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pika_blob_relocation_failures_total",
			Help: "Count of blob relocations that failed after a successful upsert",
		},
		[]string{"task_type"},
	)
)
