// Package queue provides the ordered, deduplicated queue layer between
// pipeline stages: the SQS FIFO publisher used by producers and the relay
// worker, the declarative queue topology used by provisioning, and two
// alternative backends (in-memory and Postgres) that honor the same contract
// for local runs and SQS-less deployments.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"edumatch/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher sends notification envelopes to a FIFO queue with the dedup and
// ordering keys the pipeline depends on:
//
//   - MessageDeduplicationId = envelope ID, so a retried producer call or a
//     re-forwarded relay message collapses to a single delivery within the
//     dedup window.
//   - MessageGroupId = recipient email, so each recipient's messages are
//     delivered strictly in publish order with at most one in flight.
//
// Publish is best-effort relative to the business event that triggered the
// notification: callers log a failure but never roll back the event.
type Publisher struct {
	client SQSSender
	log    types.Logger
}

// NewPublisher creates a Publisher using the given SQS client.
func NewPublisher(client SQSSender, logger types.Logger) *Publisher {
	return &Publisher{client: client, log: logger}
}

// Publish serializes the envelope and sends it to queueURL. The Type and
// UserEmail message attributes mirror the corresponding body fields so
// infrastructure can route or filter without parsing the body.
func (p *Publisher) Publish(ctx context.Context, queueURL string, msg types.NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return types.NewAppError(types.ErrCodeQueuePublish,
			"failed to marshal notification envelope", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:               aws.String(queueURL),
		MessageBody:            aws.String(string(body)),
		MessageDeduplicationId: aws.String(msg.ID),
		MessageGroupId:         aws.String(msg.GroupKey()),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			types.AttrKind: {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(msg.Kind)),
			},
			types.AttrUserEmail: {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.UserEmail),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return types.NewAppError(types.ErrCodeQueuePublish,
			fmt.Sprintf("failed to send notification to %s", queueURL), err)
	}

	p.log.Info("notification message published",
		"queue_url", queueURL,
		"notification_id", msg.ID,
		"type", string(msg.Kind),
		"group_key", msg.GroupKey(),
	)

	return nil
}

// Compile-time assertion that Publisher implements types.QueuePublisher.
var _ types.QueuePublisher = (*Publisher)(nil)
