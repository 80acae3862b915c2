package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/classifier-worker/internal/config"
	"github.com/phrazzld/classifier-worker/internal/platform/logger"
	"github.com/phrazzld/classifier-worker/internal/redact"
)

// loadAppConfig loads the configuration from the environment and an
// optional config.yaml.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// setupAppLogger installs the process logger and logs the effective
// configuration with credentials stripped.
func setupAppLogger(cfg *config.Config) (*slog.Logger, error) {
	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("worker configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"queue_backend", cfg.Queue.Backend,
		"request_queue", cfg.Queue.RequestURL,
		"status_queue", cfg.Queue.StatusURL,
		"max_concurrency", cfg.Worker.MaxConcurrency,
		"open_backend", cfg.Inference.OpenBackend)

	if cfg.Queue.AMQPURL != "" {
		l.Debug("RabbitMQ configuration", "amqp_url", redact.String(cfg.Queue.AMQPURL))
	}
	if cfg.StatusStore.RedisURL != "" {
		l.Debug("status store configuration", "redis_url", redact.String(cfg.StatusStore.RedisURL))
	}
	if cfg.Gemini.APIKey != "" {
		l.Debug("Gemini configuration", "api_key_present", true, "model", cfg.Gemini.ModelName)
	}

	return l, nil
}
