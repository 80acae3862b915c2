package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/classifier-worker/internal/api"
	"github.com/phrazzld/classifier-worker/internal/domain"
	"github.com/phrazzld/classifier-worker/internal/worker"
)

// MockStatusStore is an in-memory status store. It implements both
// worker.Reporter and api.StatusReader, so a test can report statuses
// through a worker and read them back over HTTP.
type MockStatusStore struct {
	GetErr  error
	PingErr error

	mu      sync.Mutex
	history map[string][]domain.StatusMessage
}

var (
	_ worker.Reporter  = (*MockStatusStore)(nil)
	_ api.StatusReader = (*MockStatusStore)(nil)
)

// Report records status. Statuses without a job id are ignored.
func (m *MockStatusStore) Report(_ context.Context, status domain.StatusMessage) error {
	if status.JobID == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.history == nil {
		m.history = make(map[string][]domain.StatusMessage)
	}
	m.history[status.JobID] = append(m.history[status.JobID], status)
	return nil
}

// Get returns the latest status of jobID.
func (m *MockStatusStore) Get(_ context.Context, jobID string) (domain.StatusMessage, error) {
	if m.GetErr != nil {
		return domain.StatusMessage{}, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	attempts := m.history[jobID]
	if len(attempts) == 0 {
		return domain.StatusMessage{}, domain.ErrStatusNotFound
	}
	return attempts[len(attempts)-1], nil
}

// History returns every recorded status of jobID, oldest first.
func (m *MockStatusStore) History(_ context.Context, jobID string) ([]domain.StatusMessage, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.StatusMessage, len(m.history[jobID]))
	copy(out, m.history[jobID])
	return out, nil
}

// Ping returns PingErr.
func (m *MockStatusStore) Ping(context.Context) error {
	return m.PingErr
}
