package sqs

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"

	"github.com/phrazzld/classifier-worker/internal/config"
)

// NewClient creates an SQS client for the configured region. A non-empty
// endpoint overrides the AWS endpoint, e.g. for LocalStack.
func NewClient(cfg config.QueueConfig) (*awssqs.SQS, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return awssqs.New(sess), nil
}
