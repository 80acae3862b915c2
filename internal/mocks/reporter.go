package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/classifier-worker/internal/domain"
	"github.com/phrazzld/classifier-worker/internal/worker"
)

// MockReporter implements worker.Reporter and records every status it is given.
type MockReporter struct {
	ReportFn func(ctx context.Context, status domain.StatusMessage) error
	Err      error

	mu       sync.Mutex
	statuses []domain.StatusMessage
}

var _ worker.Reporter = (*MockReporter)(nil)

// Report implements worker.Reporter.
func (m *MockReporter) Report(ctx context.Context, status domain.StatusMessage) error {
	m.mu.Lock()
	m.statuses = append(m.statuses, status)
	m.mu.Unlock()

	if m.ReportFn != nil {
		return m.ReportFn(ctx, status)
	}
	return m.Err
}

// Statuses returns a copy of the reported statuses.
func (m *MockReporter) Statuses() []domain.StatusMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.StatusMessage, len(m.statuses))
	copy(out, m.statuses)
	return out
}

// ByJobID indexes the reported statuses by job id. Later reports overwrite
// earlier ones for the same job.
func (m *MockReporter) ByJobID() map[string]domain.StatusMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.StatusMessage, len(m.statuses))
	for _, s := range m.statuses {
		out[s.JobID] = s
	}
	return out
}
