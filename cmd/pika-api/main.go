// cmd/pika-api/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pika-api/internal/clients/notes"
	"pika-api/internal/clients/notify"
	"pika-api/internal/clients/storage"
	"pika-api/internal/clients/vision"
	"pika-api/internal/common/config"
	"pika-api/internal/common/logger"
	"pika-api/internal/common/observability"
	"pika-api/internal/orchestrator"
	"pika-api/internal/server"
	"pika-api/internal/tasks/healthmetrics"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting pika-api...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("pika-api")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis cache (optional) with retry ---
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		err = retryWithBackoff(func() error {
			redisClient = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Address,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			return redisClient.Ping(ctx).Err()
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Warn("redis unavailable, continuing without cache", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Init External Service Clients ---
	blobStore := storage.NewClient(cfg.Storage, log)
	visionClient := vision.NewClient(cfg.Vision, log)
	notesClient := notes.NewClient(cfg.Notion, redisClient, log)

	notifier, err := notify.NewNotifier(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("notifier init failed", zap.Error(err))
	}

	zapLog.Info("All external service clients initialized")

	// --- Register Task Handlers ---
	orch := orchestrator.New(log, obs, notifier)

	if config.IsTaskEnabled(cfg, healthmetrics.TaskType) {
		taskCfg := config.GetTaskConfig(cfg, healthmetrics.TaskType)
		orch.Register(healthmetrics.NewHandler(
			&healthmetrics.Config{
				Timeout:    taskCfg.Timeout,
				MaxRetries: taskCfg.MaxRetries,
			},
			blobStore, visionClient, notesClient, log,
		))
		zapLog.Info("task handler registered", zap.String("taskType", healthmetrics.TaskType))
	}

	// --- API Server ---
	srv := server.New(cfg, orch, log)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("API server stopped", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error during shutdown", zap.Error(err))
	}

	zapLog.Info("pika-api stopped gracefully")
}
