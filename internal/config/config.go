package config

import "time"

// Config holds all worker configuration.
// Settings are grouped by the component that consumes them.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" validate:"required"`
	Queue       QueueConfig       `mapstructure:"queue" validate:"required"`
	Worker      WorkerConfig      `mapstructure:"worker" validate:"required"`
	Images      ImagesConfig      `mapstructure:"images"`
	Inference   InferenceConfig   `mapstructure:"inference" validate:"required"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	StatusStore StatusStoreConfig `mapstructure:"status_store"`
}

// ServerConfig contains the debug HTTP surface and logging settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// QueueConfig describes the request queue the worker consumes and the
// status channel it reports to.
type QueueConfig struct {
	// Backend selects the broker implementation.
	Backend string `mapstructure:"backend" validate:"required,oneof=sqs rabbitmq"`

	// RequestURL is the SQS queue URL, or the RabbitMQ queue name.
	RequestURL string `mapstructure:"request_url" validate:"required"`

	// StatusURL is the SQS queue URL, or the RabbitMQ queue name, for status messages.
	StatusURL string `mapstructure:"status_url" validate:"required"`

	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
	AMQPURL  string `mapstructure:"amqp_url" validate:"required_if=Backend rabbitmq"`

	// BatchSize bounds how many messages one receive call may return.
	BatchSize int `mapstructure:"batch_size" validate:"gte=1,lte=10"`

	// WaitTime is the long-poll duration of one receive call.
	WaitTime time.Duration `mapstructure:"wait_time" validate:"gte=0,lte=20s"`

	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout" validate:"gte=0"`
	IdleInterval      time.Duration `mapstructure:"idle_interval" validate:"gte=0"`
	ErrorBackoff      time.Duration `mapstructure:"error_backoff" validate:"gt=0"`
}

// WorkerConfig contains settings for the queue worker loop.
type WorkerConfig struct {
	// MaxConcurrency caps the number of messages processed at once.
	MaxConcurrency  int           `mapstructure:"max_concurrency" validate:"gte=1"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// ImagesConfig configures the object store the images are read from.
type ImagesConfig struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
	MaxBytes int64  `mapstructure:"max_bytes" validate:"gte=0"`
}

// InferenceConfig configures the model inference backends.
type InferenceConfig struct {
	BaseURL         string        `mapstructure:"base_url" validate:"required,url"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"gt=0"`
	InputSize       int           `mapstructure:"input_size" validate:"gte=0"`
	ClosedModelName string        `mapstructure:"closed_model_name" validate:"required"`
	OpenModelName   string        `mapstructure:"open_model_name" validate:"required"`
	OpenBackend     string        `mapstructure:"open_backend" validate:"required,oneof=http gemini"`
}

// GeminiConfig contains the settings of the Gemini open-vocabulary backend.
// Only required when inference.open_backend is "gemini".
type GeminiConfig struct {
	APIKey     string `mapstructure:"api_key"`
	ModelName  string `mapstructure:"model_name"`
	MaxRetries int    `mapstructure:"max_retries" validate:"gte=0"`
}

// StatusStoreConfig configures the optional Redis store used for status polling.
type StatusStoreConfig struct {
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
}
