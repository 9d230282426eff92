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

// SQSAdmin abstracts the SQS control-plane operations used by topology
// provisioning. Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSAdmin interface {
	CreateQueue(ctx context.Context, params *sqs.CreateQueueInput, optFns ...func(*sqs.Options)) (*sqs.CreateQueueOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// QueueSpec describes one FIFO queue in the pipeline topology.
type QueueSpec struct {
	// Name is the queue name including the required .fifo suffix.
	Name string
	// DLQName is the paired dead-letter queue name, empty for DLQs themselves.
	DLQName string
}

// Topology is the full queue layout of the pipeline: two primary FIFO queues,
// each paired with a FIFO DLQ. Redrive moves a message to its DLQ after
// types.MaxReceiveCount failed delivery attempts; DLQs have no further
// redrive.
type Topology struct {
	Notifications    QueueSpec
	NotificationsDLQ QueueSpec
	Emails           QueueSpec
	EmailsDLQ        QueueSpec
}

// DefaultTopology returns the pipeline topology with queue names prefixed by
// the given environment (e.g. "prod-notifications.fifo").
func DefaultTopology(env string) Topology {
	name := func(base string) string { return fmt.Sprintf("%s-%s.fifo", env, base) }
	return Topology{
		Notifications:    QueueSpec{Name: name("notifications"), DLQName: name("notifications-dlq")},
		NotificationsDLQ: QueueSpec{Name: name("notifications-dlq")},
		Emails:           QueueSpec{Name: name("emails"), DLQName: name("emails-dlq")},
		EmailsDLQ:        QueueSpec{Name: name("emails-dlq")},
	}
}

// ProvisionResult reports the queue URLs created or confirmed by
// EnsureTopology, keyed by queue name.
type ProvisionResult struct {
	QueueURLs map[string]string
}

// redrivePolicy is the JSON document SQS expects in the RedrivePolicy queue
// attribute.
type redrivePolicy struct {
	DeadLetterTargetArn string `json:"deadLetterTargetArn"`
	MaxReceiveCount     int    `json:"maxReceiveCount"`
}

// EnsureTopology creates (or confirms, CreateQueue being idempotent for
// identical attributes) every queue in the topology. DLQs are created first
// because primary queues reference their ARN in the redrive policy.
//
// All queues share the same policy shape:
//
//	FIFO, content-based deduplication enabled, visibility timeout 300s,
//	retention 14 days. Primary queues add a redrive policy with
//	maxReceiveCount 3 pointing at the paired DLQ.
func EnsureTopology(ctx context.Context, client SQSAdmin, topo Topology, logger types.Logger) (*ProvisionResult, error) {
	result := &ProvisionResult{QueueURLs: make(map[string]string)}

	// Pass 1: DLQs.
	dlqARNs := make(map[string]string)
	for _, spec := range []QueueSpec{topo.NotificationsDLQ, topo.EmailsDLQ} {
		url, arn, err := createQueue(ctx, client, spec, "")
		if err != nil {
			return nil, err
		}
		result.QueueURLs[spec.Name] = url
		dlqARNs[spec.Name] = arn
		logger.Info("dead-letter queue ready", "queue", spec.Name, "url", url)
	}

	// Pass 2: primary queues with redrive.
	for _, spec := range []QueueSpec{topo.Notifications, topo.Emails} {
		dlqARN, ok := dlqARNs[spec.DLQName]
		if !ok {
			return nil, types.NewAppError(types.ErrCodeQueueProvision,
				fmt.Sprintf("no DLQ ARN recorded for %s", spec.DLQName), nil)
		}
		url, _, err := createQueue(ctx, client, spec, dlqARN)
		if err != nil {
			return nil, err
		}
		result.QueueURLs[spec.Name] = url
		logger.Info("primary queue ready", "queue", spec.Name, "url", url, "dlq", spec.DLQName)
	}

	return result, nil
}

// createQueue issues the CreateQueue call for one spec and resolves the queue
// ARN for redrive wiring. A non-empty dlqARN attaches the redrive policy.
func createQueue(ctx context.Context, client SQSAdmin, spec QueueSpec, dlqARN string) (url, arn string, err error) {
	attrs := map[string]string{
		string(sqsTypes.QueueAttributeNameFifoQueue):                 "true",
		string(sqsTypes.QueueAttributeNameContentBasedDeduplication): "true",
		string(sqsTypes.QueueAttributeNameVisibilityTimeout):         fmt.Sprintf("%d", types.VisibilityTimeoutSeconds),
		string(sqsTypes.QueueAttributeNameMessageRetentionPeriod):    fmt.Sprintf("%d", types.RetentionSeconds),
	}

	if dlqARN != "" {
		policy, marshalErr := json.Marshal(redrivePolicy{
			DeadLetterTargetArn: dlqARN,
			MaxReceiveCount:     types.MaxReceiveCount,
		})
		if marshalErr != nil {
			return "", "", types.NewAppError(types.ErrCodeQueueProvision,
				"failed to marshal redrive policy", marshalErr)
		}
		attrs[string(sqsTypes.QueueAttributeNameRedrivePolicy)] = string(policy)
	}

	out, err := client.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName:  aws.String(spec.Name),
		Attributes: attrs,
	})
	if err != nil {
		return "", "", types.NewAppError(types.ErrCodeQueueProvision,
			fmt.Sprintf("failed to create queue %s", spec.Name), err)
	}
	url = aws.ToString(out.QueueUrl)

	attrOut, err := client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       out.QueueUrl,
		AttributeNames: []sqsTypes.QueueAttributeName{sqsTypes.QueueAttributeNameQueueArn},
	})
	if err != nil {
		return "", "", types.NewAppError(types.ErrCodeQueueProvision,
			fmt.Sprintf("failed to resolve ARN for queue %s", spec.Name), err)
	}
	arn = attrOut.Attributes[string(sqsTypes.QueueAttributeNameQueueArn)]

	return url, arn, nil
}
