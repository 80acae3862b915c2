package worker

import (
	"time"

	"github.com/phrazzld/classifier-worker/internal/config"
)

// Config holds the tuning knobs of the worker loop.
type Config struct {
	// BatchSize is the maximum number of messages pulled per receive.
	BatchSize int

	// WaitTime is the long-poll duration of one receive.
	WaitTime time.Duration

	// MaxConcurrency caps how many messages of a batch are processed at once.
	// If zero or negative, defaults to 1.
	MaxConcurrency int

	// IdleInterval is how long the loop pauses after an empty receive.
	IdleInterval time.Duration

	// ErrorBackoff is the initial pause after a failed receive. Consecutive
	// failures double it up to MaxErrorBackoff.
	ErrorBackoff    time.Duration
	MaxErrorBackoff time.Duration
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		BatchSize:       10,
		WaitTime:        20 * time.Second,
		MaxConcurrency:  5,
		IdleInterval:    time.Second,
		ErrorBackoff:    5 * time.Second,
		MaxErrorBackoff: time.Minute,
	}
}

// ConfigFrom derives the worker settings from the application configuration.
func ConfigFrom(cfg *config.Config) Config {
	c := DefaultConfig()
	c.BatchSize = cfg.Queue.BatchSize
	c.WaitTime = cfg.Queue.WaitTime
	c.MaxConcurrency = cfg.Worker.MaxConcurrency
	c.IdleInterval = cfg.Queue.IdleInterval
	c.ErrorBackoff = cfg.Queue.ErrorBackoff
	if c.MaxErrorBackoff < c.ErrorBackoff {
		c.MaxErrorBackoff = c.ErrorBackoff
	}
	return c
}
