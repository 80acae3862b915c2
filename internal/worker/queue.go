package worker

import (
	"context"
	"errors"
	"time"

	"github.com/phrazzld/classifier-worker/internal/domain"
)

// Message is one raw message received from the request queue.
type Message struct {
	// ID is the broker-assigned message identifier.
	ID string

	// Body is the undecoded job payload.
	Body []byte

	// ReceiptHandle identifies this delivery when acknowledging it.
	ReceiptHandle string

	// ReceiveCount is the number of times the broker has delivered the
	// message, when the broker reports it. Zero means unknown.
	ReceiveCount int
}

// Queue is the request queue the worker consumes.
type Queue interface {
	// Receive long-polls for up to max messages, blocking at most wait.
	// An empty slice with a nil error means no message arrived in time.
	Receive(ctx context.Context, max int, wait time.Duration) ([]Message, error)

	// Delete acknowledges msg, removing it from the queue.
	Delete(ctx context.Context, msg Message) error
}

// Reporter publishes terminal job statuses.
type Reporter interface {
	Report(ctx context.Context, status domain.StatusMessage) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, status domain.StatusMessage) error

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, status domain.StatusMessage) error {
	return f(ctx, status)
}

// MultiReporter fans a status out to several reporters. Every reporter is
// called even when an earlier one fails; the failures are joined.
type MultiReporter []Reporter

// Report implements Reporter.
func (m MultiReporter) Report(ctx context.Context, status domain.StatusMessage) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, status); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Processor classifies one parsed job.
type Processor interface {
	ClassifyBatch(ctx context.Context, job domain.Job) (*domain.BatchResult, error)
}
