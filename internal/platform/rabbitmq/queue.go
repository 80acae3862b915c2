package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/phrazzld/classifier-worker/internal/worker"
)

// DefaultPollInterval is how often an empty queue is polled during a receive.
const DefaultPollInterval = 200 * time.Millisecond

// deliveryCountHeader is set by quorum queues to the number of prior deliveries.
const deliveryCountHeader = "x-delivery-count"

// Queue consumes jobs from a RabbitMQ queue with basic.get, emulating a
// long-poll receive by polling until a message arrives or the wait elapses.
type Queue struct {
	ch           Channel
	name         string
	pollInterval time.Duration
	logger       *slog.Logger
}

var _ worker.Queue = (*Queue)(nil)

// NewQueue creates a Queue reading from the queue called name.
func NewQueue(ch Channel, name string, pollInterval time.Duration, logger *slog.Logger) *Queue {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		ch:           ch,
		name:         name,
		pollInterval: pollInterval,
		logger:       logger.With("queue", name),
	}
}

// Receive implements worker.Queue. It returns as soon as at least one
// message is available, fetching up to max without waiting further.
func (q *Queue) Receive(ctx context.Context, max int, wait time.Duration) ([]worker.Message, error) {
	if max <= 0 {
		max = 1
	}
	deadline := time.Now().Add(wait)

	for {
		msgs, err := q.drain(max)
		if err != nil {
			if len(msgs) == 0 {
				return nil, err
			}
			q.logger.Warn("returning partial batch after get failure",
				"count", len(msgs),
				"error", err)
			return msgs, nil
		}
		if len(msgs) > 0 {
			return msgs, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		t := time.NewTimer(min(q.pollInterval, remaining))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// drain fetches up to max immediately available messages.
func (q *Queue) drain(max int) ([]worker.Message, error) {
	var msgs []worker.Message
	for len(msgs) < max {
		d, ok, err := q.ch.Get(q.name, false)
		if err != nil {
			return msgs, fmt.Errorf("failed to get from %s: %w", q.name, err)
		}
		if !ok {
			break
		}
		msgs = append(msgs, toMessage(d))
	}
	return msgs, nil
}

func toMessage(d amqp.Delivery) worker.Message {
	tag := strconv.FormatUint(d.DeliveryTag, 10)
	msg := worker.Message{
		ID:            d.MessageId,
		Body:          d.Body,
		ReceiptHandle: tag,
	}
	if msg.ID == "" {
		msg.ID = tag
	}

	switch n := d.Headers[deliveryCountHeader].(type) {
	case int64:
		msg.ReceiveCount = int(n) + 1
	case int32:
		msg.ReceiveCount = int(n) + 1
	case int:
		msg.ReceiveCount = n + 1
	default:
		if !d.Redelivered {
			msg.ReceiveCount = 1
		}
	}
	return msg
}

// Delete implements worker.Queue by acking the delivery.
func (q *Queue) Delete(ctx context.Context, msg worker.Message) error {
	tag, err := strconv.ParseUint(msg.ReceiptHandle, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid delivery tag %q: %w", msg.ReceiptHandle, err)
	}
	if err := q.ch.Ack(tag, false); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", msg.ID, err)
	}
	return nil
}
