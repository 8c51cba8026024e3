// internal/tasks/healthmetrics/config.go
package healthmetrics

// Config holds handler-level settings for the health metrics task.
type Config struct {
	Timeout    int // milliseconds, applied per task execution
	MaxRetries int
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:    120000,
		MaxRetries: 3,
	}
}
