package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/phrazzld/classifier-worker/internal/domain"
	"github.com/phrazzld/classifier-worker/internal/worker"
)

// DefaultPublishTimeout bounds one publish including its broker confirmation.
const DefaultPublishTimeout = 5 * time.Second

// ErrNotConfirmed is returned when the broker nacks a published status.
var ErrNotConfirmed = errors.New("publish was not confirmed by the broker")

// StatusPublisher publishes job statuses to a RabbitMQ queue through the
// default exchange and waits for the broker confirmation.
type StatusPublisher struct {
	ch      Channel
	queue   string
	timeout time.Duration
}

var _ worker.Reporter = (*StatusPublisher)(nil)

// NewStatusPublisher creates a publisher routing to the queue called name.
// ch should be in confirm mode.
func NewStatusPublisher(ch Channel, name string) *StatusPublisher {
	return &StatusPublisher{ch: ch, queue: name, timeout: DefaultPublishTimeout}
}

// Report implements worker.Reporter.
func (p *StatusPublisher) Report(ctx context.Context, status domain.StatusMessage) error {
	body, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status for job %s: %w", status.JobID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			MessageId:     uuid.NewString(),
			CorrelationId: status.JobID,
			Type:          string(status.Status),
			Timestamp:     time.Now().UTC(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish status for job %s: %w", status.JobID, err)
	}

	// A nil confirmation means the channel is not in confirm mode.
	if confirm == nil {
		return nil
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("waiting for confirmation of job %s: %w", status.JobID, err)
	}
	if !acked {
		return fmt.Errorf("job %s: %w", status.JobID, ErrNotConfirmed)
	}
	return nil
}
