package api

import (
	"github.com/phrazzld/classifier-worker/internal/domain"
	"github.com/phrazzld/classifier-worker/internal/worker"
)

// ModelHealth describes one registered classifier variant.
type ModelHealth struct {
	JobType domain.JobKind `json:"job_type"`
	Name    string         `json:"name"`
	Ready   bool           `json:"ready"`
	Error   string         `json:"error,omitempty"`
}

// WorkerHealth describes the queue worker.
type WorkerHealth struct {
	ID      string       `json:"id"`
	Running bool         `json:"running"`
	Stats   worker.Stats `json:"stats"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	// Status is "ok" when every model is ready and the worker, if any, is
	// running; "degraded" otherwise.
	Status      string        `json:"status"`
	Models      []ModelHealth `json:"models"`
	Worker      *WorkerHealth `json:"worker,omitempty"`
	StatusStore string        `json:"status_store"`
}

// JobHistoryResponse is the body of GET /jobs/{id}/history.
type JobHistoryResponse struct {
	JobID    string                 `json:"job_id"`
	Attempts []domain.StatusMessage `json:"attempts"`
}
