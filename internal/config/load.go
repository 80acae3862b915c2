package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. CLASSIFIER_QUEUE_REQUEST_URL for queue.request_url.
const EnvPrefix = "CLASSIFIER"

// ErrValidation is wrapped by every error returned for an invalid configuration.
var ErrValidation = errors.New("validation failed")

// setDefaults registers a default for every known key. Registering a key is
// also what lets viper pick it up from the environment during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("queue.backend", "sqs")
	v.SetDefault("queue.request_url", "")
	v.SetDefault("queue.status_url", "")
	v.SetDefault("queue.region", "us-east-1")
	v.SetDefault("queue.endpoint", "")
	v.SetDefault("queue.amqp_url", "")
	v.SetDefault("queue.batch_size", 10)
	v.SetDefault("queue.wait_time", 20*time.Second)
	v.SetDefault("queue.visibility_timeout", 300*time.Second)
	v.SetDefault("queue.idle_interval", time.Second)
	v.SetDefault("queue.error_backoff", 5*time.Second)

	v.SetDefault("worker.max_concurrency", 5)
	v.SetDefault("worker.shutdown_timeout", 5*time.Minute)

	v.SetDefault("images.region", "us-east-1")
	v.SetDefault("images.endpoint", "")
	v.SetDefault("images.max_bytes", 20<<20)

	v.SetDefault("inference.base_url", "http://localhost:9000")
	v.SetDefault("inference.timeout", 60*time.Second)
	v.SetDefault("inference.input_size", 224)
	v.SetDefault("inference.closed_model_name", "MobileNetV2")
	v.SetDefault("inference.open_model_name", "CLIP")
	v.SetDefault("inference.open_backend", "http")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-2.0-flash")
	v.SetDefault("gemini.max_retries", 3)

	v.SetDefault("status_store.redis_url", "")
	v.SetDefault("status_store.ttl", 24*time.Hour)
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the config file.
// Returns a populated Config or an error if loading or validation fails.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom behaves like Load but reads the config file at path when it is
// non-empty instead of searching for config.yaml in the working directory.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the cross-section rules that tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if cfg.Inference.OpenBackend == "gemini" {
		if cfg.Gemini.APIKey == "" {
			return fmt.Errorf("%w: gemini.api_key is required when inference.open_backend is gemini", ErrValidation)
		}
		if cfg.Gemini.ModelName == "" {
			return fmt.Errorf("%w: gemini.model_name is required when inference.open_backend is gemini", ErrValidation)
		}
	}

	return nil
}
