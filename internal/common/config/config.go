// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig             `mapstructure:"app"`
	Server        ServerConfig          `mapstructure:"server"`
	Storage       StorageConfig         `mapstructure:"storage"`
	Notion        NotionConfig          `mapstructure:"notion"`
	Vision        VisionConfig          `mapstructure:"vision"`
	Redis         RedisConfig           `mapstructure:"redis"`
	Tasks         map[string]TaskConfig `mapstructure:"tasks"`
	Logging       LoggingConfig         `mapstructure:"logging"`
	Notifications NotificationConfig    `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

// StorageConfig holds the object-storage settings. The secret half of the
// credential arrives per request (storage_key) and is never persisted here.
type StorageConfig struct {
	Region      string `mapstructure:"region"`
	Bucket      string `mapstructure:"bucket"`
	Endpoint    string `mapstructure:"endpoint"` // optional, for S3-compatible stores
	AccessKeyID string `mapstructure:"access_key_id"`
}

// NotionConfig holds the notes-database settings.
type NotionConfig struct {
	APIKey    string            `mapstructure:"api_key"`
	BaseURL   string            `mapstructure:"base_url"`
	Version   string            `mapstructure:"version"`
	Databases map[string]string `mapstructure:"databases"`
	Timeout   int               `mapstructure:"timeout"` // milliseconds
}

// HealthDatabaseID returns the database id used for health-metrics rows.
func (n NotionConfig) HealthDatabaseID() string {
	return n.Databases["health_metrics"]
}

// VisionConfig holds settings for the vision-model endpoint.
type VisionConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	WeightUnit string `mapstructure:"weight_unit"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TaskConfig holds the core settings applicable to every task handler.
type TaskConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	Timeout    int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// NotificationConfig holds settings for the failure-notification emailer.
type NotificationConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Region    string `mapstructure:"region"`
	FromEmail string `mapstructure:"from_email"`
	ToEmail   string `mapstructure:"to_email"`
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) error {
	if cfg.Notion.APIKey == "" {
		return fmt.Errorf("notion.api_key is required")
	}
	if cfg.Notion.HealthDatabaseID() == "" {
		return fmt.Errorf("notion.databases.health_metrics is required")
	}
	if cfg.Vision.APIKey == "" {
		return fmt.Errorf("vision.api_key is required")
	}
	if cfg.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	if cfg.Notifications.Enabled && cfg.Notifications.ToEmail == "" {
		return fmt.Errorf("notifications.to_email is required when notifications are enabled")
	}
	return nil
}
