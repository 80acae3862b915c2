package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/classifier-worker/internal/domain"
	"github.com/phrazzld/classifier-worker/internal/worker"
)

// MockProcessor implements worker.Processor.
type MockProcessor struct {
	ClassifyBatchFn func(ctx context.Context, job domain.Job) (*domain.BatchResult, error)
	Err             error

	mu   sync.Mutex
	jobs []domain.Job
}

var _ worker.Processor = (*MockProcessor)(nil)

// ClassifyBatch implements worker.Processor. Without ClassifyBatchFn or Err
// it returns an empty successful result for the job.
func (m *MockProcessor) ClassifyBatch(ctx context.Context, job domain.Job) (*domain.BatchResult, error) {
	m.mu.Lock()
	m.jobs = append(m.jobs, job)
	m.mu.Unlock()

	if m.ClassifyBatchFn != nil {
		return m.ClassifyBatchFn(ctx, job)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &domain.BatchResult{
		Success:   true,
		JobID:     job.ID,
		JobType:   job.Kind,
		ModelUsed: "MockModel",
	}, nil
}

// Jobs returns a copy of the jobs passed to ClassifyBatch.
func (m *MockProcessor) Jobs() []domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Job, len(m.jobs))
	copy(out, m.jobs)
	return out
}
