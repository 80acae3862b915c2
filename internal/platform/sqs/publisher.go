package sqs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"

	"github.com/phrazzld/classifier-worker/internal/domain"
	"github.com/phrazzld/classifier-worker/internal/worker"
)

// StatusPublisher sends job statuses to an SQS status queue.
type StatusPublisher struct {
	client   sqsiface.SQSAPI
	queueURL string
}

var _ worker.Reporter = (*StatusPublisher)(nil)

// NewStatusPublisher creates a publisher writing to queueURL.
func NewStatusPublisher(client sqsiface.SQSAPI, queueURL string) (*StatusPublisher, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if queueURL == "" {
		return nil, ErrEmptyQueueURL
	}
	return &StatusPublisher{client: client, queueURL: queueURL}, nil
}

// Report implements worker.Reporter. The job id and status are also set as
// message attributes so consumers can filter without decoding the body.
func (p *StatusPublisher) Report(ctx context.Context, status domain.StatusMessage) error {
	body, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status for job %s: %w", status.JobID, err)
	}

	attrs := map[string]*awssqs.MessageAttributeValue{
		"status": stringAttribute(string(status.Status)),
	}
	// SQS rejects empty attribute values; unparseable jobs have no id.
	if status.JobID != "" {
		attrs["job_id"] = stringAttribute(status.JobID)
	}

	_, err = p.client.SendMessageWithContext(ctx, &awssqs.SendMessageInput{
		QueueUrl:          aws.String(p.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("failed to send status for job %s: %w", status.JobID, err)
	}
	return nil
}

func stringAttribute(v string) *awssqs.MessageAttributeValue {
	return &awssqs.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(v),
	}
}
