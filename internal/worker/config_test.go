package worker_test

import (
	"testing"
	"time"

	"github.com/phrazzld/classifier-worker/internal/config"
	"github.com/phrazzld/classifier-worker/internal/worker"
	"github.com/stretchr/testify/assert"
)

func TestConfigFrom(t *testing.T) {
	cfg := &config.Config{
		Queue: config.QueueConfig{
			BatchSize:    7,
			WaitTime:     15 * time.Second,
			IdleInterval: 2 * time.Second,
			ErrorBackoff: 3 * time.Second,
		},
		Worker: config.WorkerConfig{MaxConcurrency: 4},
	}

	got := worker.ConfigFrom(cfg)

	assert.Equal(t, 7, got.BatchSize)
	assert.Equal(t, 15*time.Second, got.WaitTime)
	assert.Equal(t, 4, got.MaxConcurrency)
	assert.Equal(t, 2*time.Second, got.IdleInterval)
	assert.Equal(t, 3*time.Second, got.ErrorBackoff)
	assert.Equal(t, worker.DefaultConfig().MaxErrorBackoff, got.MaxErrorBackoff)
}
