package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/classifier-worker/internal/worker"
)

// MockQueue implements worker.Queue.
//
// Receive hands out Batches in order, one per call, and then returns empty
// batches. Every Delete is recorded.
type MockQueue struct {
	ReceiveFn func(ctx context.Context, max int, wait time.Duration) ([]worker.Message, error)
	DeleteFn  func(ctx context.Context, msg worker.Message) error

	Batches    [][]worker.Message
	ReceiveErr error
	DeleteErr  error

	mu           sync.Mutex
	receiveCalls int
	deleted      []worker.Message
}

var _ worker.Queue = (*MockQueue)(nil)

// Receive implements worker.Queue.
func (m *MockQueue) Receive(ctx context.Context, max int, wait time.Duration) ([]worker.Message, error) {
	m.mu.Lock()
	call := m.receiveCalls
	m.receiveCalls++
	m.mu.Unlock()

	if m.ReceiveFn != nil {
		return m.ReceiveFn(ctx, max, wait)
	}
	if m.ReceiveErr != nil {
		return nil, m.ReceiveErr
	}
	if call < len(m.Batches) {
		batch := m.Batches[call]
		if len(batch) > max {
			batch = batch[:max]
		}
		return batch, nil
	}
	return nil, nil
}

// Delete implements worker.Queue.
func (m *MockQueue) Delete(ctx context.Context, msg worker.Message) error {
	m.mu.Lock()
	m.deleted = append(m.deleted, msg)
	m.mu.Unlock()

	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, msg)
	}
	return m.DeleteErr
}

// ReceiveCalls returns the number of Receive invocations.
func (m *MockQueue) ReceiveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.receiveCalls
}

// Deleted returns a copy of the messages passed to Delete.
func (m *MockQueue) Deleted() []worker.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]worker.Message, len(m.deleted))
	copy(out, m.deleted)
	return out
}
