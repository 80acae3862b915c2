package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel the adapters use.
type Channel interface {
	Get(queue string, autoAck bool) (amqp.Delivery, bool, error)
	Ack(tag uint64, multiple bool) error
	PublishWithDeferredConfirmWithContext(
		ctx context.Context,
		exchange, key string,
		mandatory, immediate bool,
		msg amqp.Publishing,
	) (*amqp.DeferredConfirmation, error)
}

// Broker owns one connection with a consume channel and a publish channel.
type Broker struct {
	conn    *amqp.Connection
	consume *amqp.Channel
	publish *amqp.Channel
	logger  *slog.Logger
}

// Dial connects to url, opens the channels and declares the named durable
// queues.
func Dial(url string, logger *slog.Logger, queues ...string) (*Broker, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	consume, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open consume channel: %w", err)
	}

	publish, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open publish channel: %w", err)
	}
	if err := publish.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable publish confirmations: %w", err)
	}

	for _, name := range queues {
		if _, err := consume.QueueDeclare(
			name,  // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}

	return &Broker{
		conn:    conn,
		consume: consume,
		publish: publish,
		logger:  logger.With("component", "rabbitmq"),
	}, nil
}

// Queue returns a worker queue consuming name.
func (b *Broker) Queue(name string, pollInterval time.Duration) *Queue {
	return NewQueue(b.consume, name, pollInterval, b.logger)
}

// StatusPublisher returns a reporter publishing to name.
func (b *Broker) StatusPublisher(name string) *StatusPublisher {
	return NewStatusPublisher(b.publish, name)
}

// Close closes both channels and the connection. Deliveries that were
// fetched but not acked are returned to their queue.
func (b *Broker) Close() error {
	var errs []error
	if err := b.consume.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}
	if err := b.publish.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}
	if err := b.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
