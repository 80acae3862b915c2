package sqs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"

	"github.com/phrazzld/classifier-worker/internal/worker"
)

// maxWaitTime is the longest long-poll SQS accepts.
const maxWaitTime = 20 * time.Second

// maxBatchSize is the most messages one SQS receive can return.
const maxBatchSize = 10

// Common errors
var (
	ErrNilClient     = errors.New("sqs client cannot be nil")
	ErrEmptyQueueURL = errors.New("queue url cannot be empty")
)

// Queue consumes jobs from an SQS queue.
type Queue struct {
	client            sqsiface.SQSAPI
	queueURL          string
	visibilityTimeout time.Duration
	logger            *slog.Logger
}

var _ worker.Queue = (*Queue)(nil)

// NewQueue creates a Queue reading from queueURL. A zero visibilityTimeout
// keeps the queue's own setting.
func NewQueue(
	client sqsiface.SQSAPI,
	queueURL string,
	visibilityTimeout time.Duration,
	logger *slog.Logger,
) (*Queue, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if queueURL == "" {
		return nil, ErrEmptyQueueURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Queue{
		client:            client,
		queueURL:          queueURL,
		visibilityTimeout: visibilityTimeout,
		logger:            logger.With("component", "sqs_queue"),
	}, nil
}

// Receive implements worker.Queue.
func (q *Queue) Receive(ctx context.Context, max int, wait time.Duration) ([]worker.Message, error) {
	if max <= 0 || max > maxBatchSize {
		max = maxBatchSize
	}
	if wait > maxWaitTime {
		wait = maxWaitTime
	}

	input := &awssqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: aws.Int64(int64(max)),
		WaitTimeSeconds:     aws.Int64(int64(wait / time.Second)),
		AttributeNames: []*string{
			aws.String(awssqs.MessageSystemAttributeNameApproximateReceiveCount),
		},
	}
	if q.visibilityTimeout > 0 {
		input.VisibilityTimeout = aws.Int64(int64(q.visibilityTimeout / time.Second))
	}

	out, err := q.client.ReceiveMessageWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to receive from %s: %w", q.queueURL, err)
	}

	msgs := make([]worker.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, q.toMessage(m))
	}
	return msgs, nil
}

func (q *Queue) toMessage(m *awssqs.Message) worker.Message {
	msg := worker.Message{
		ID:            aws.StringValue(m.MessageId),
		Body:          []byte(aws.StringValue(m.Body)),
		ReceiptHandle: aws.StringValue(m.ReceiptHandle),
	}
	if v, ok := m.Attributes[awssqs.MessageSystemAttributeNameApproximateReceiveCount]; ok {
		n, err := strconv.Atoi(aws.StringValue(v))
		if err != nil {
			q.logger.Warn("ignoring unparseable receive count",
				"message_id", msg.ID,
				"value", aws.StringValue(v))
		} else {
			msg.ReceiveCount = n
		}
	}
	return msg
}

// Delete implements worker.Queue.
func (q *Queue) Delete(ctx context.Context, msg worker.Message) error {
	_, err := q.client.DeleteMessageWithContext(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(msg.ReceiptHandle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete message %s: %w", msg.ID, err)
	}
	return nil
}
