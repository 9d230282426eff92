package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"edumatch/internal/types"
)

// mockSQSAdmin records CreateQueue calls and fabricates URLs and ARNs.
type mockSQSAdmin struct {
	created []*sqs.CreateQueueInput
}

func (m *mockSQSAdmin) CreateQueue(_ context.Context, params *sqs.CreateQueueInput, _ ...func(*sqs.Options)) (*sqs.CreateQueueOutput, error) {
	m.created = append(m.created, params)
	url := fmt.Sprintf("https://sqs.test/123/%s", aws.ToString(params.QueueName))
	return &sqs.CreateQueueOutput{QueueUrl: aws.String(url)}, nil
}

func (m *mockSQSAdmin) GetQueueAttributes(_ context.Context, params *sqs.GetQueueAttributesInput, _ ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error) {
	url := aws.ToString(params.QueueUrl)
	return &sqs.GetQueueAttributesOutput{
		Attributes: map[string]string{
			string(sqsTypes.QueueAttributeNameQueueArn): "arn:aws:sqs:test:123:" + url,
		},
	}, nil
}

func TestDefaultTopology_Names(t *testing.T) {
	topo := DefaultTopology("dev")

	if topo.Notifications.Name != "dev-notifications.fifo" {
		t.Errorf("unexpected notifications queue name %q", topo.Notifications.Name)
	}
	if topo.Notifications.DLQName != "dev-notifications-dlq.fifo" {
		t.Errorf("unexpected notifications DLQ name %q", topo.Notifications.DLQName)
	}
	if topo.Emails.Name != "dev-emails.fifo" {
		t.Errorf("unexpected emails queue name %q", topo.Emails.Name)
	}
	if topo.EmailsDLQ.DLQName != "" {
		t.Errorf("DLQ must not itself have a DLQ, got %q", topo.EmailsDLQ.DLQName)
	}
}

func TestEnsureTopology_CreatesDLQsFirstWithPolicy(t *testing.T) {
	admin := &mockSQSAdmin{}
	topo := DefaultTopology("test")

	result, err := EnsureTopology(context.Background(), admin, topo, nopLogger{})
	if err != nil {
		t.Fatalf("EnsureTopology: %v", err)
	}

	if len(admin.created) != 4 {
		t.Fatalf("expected 4 CreateQueue calls, got %d", len(admin.created))
	}

	// DLQs come first so their ARNs exist for the redrive policies.
	first := aws.ToString(admin.created[0].QueueName)
	second := aws.ToString(admin.created[1].QueueName)
	if first != topo.NotificationsDLQ.Name || second != topo.EmailsDLQ.Name {
		t.Errorf("expected DLQs created first, got %q then %q", first, second)
	}

	for _, input := range admin.created {
		name := aws.ToString(input.QueueName)
		attrs := input.Attributes

		if attrs[string(sqsTypes.QueueAttributeNameFifoQueue)] != "true" {
			t.Errorf("%s: FifoQueue not set", name)
		}
		if attrs[string(sqsTypes.QueueAttributeNameContentBasedDeduplication)] != "true" {
			t.Errorf("%s: ContentBasedDeduplication not set", name)
		}
		if got := attrs[string(sqsTypes.QueueAttributeNameVisibilityTimeout)]; got != strconv.Itoa(types.VisibilityTimeoutSeconds) {
			t.Errorf("%s: visibility timeout %q", name, got)
		}
		if got := attrs[string(sqsTypes.QueueAttributeNameMessageRetentionPeriod)]; got != strconv.Itoa(types.RetentionSeconds) {
			t.Errorf("%s: retention %q", name, got)
		}

		policyJSON, hasPolicy := attrs[string(sqsTypes.QueueAttributeNameRedrivePolicy)]
		isPrimary := name == topo.Notifications.Name || name == topo.Emails.Name
		if isPrimary != hasPolicy {
			t.Errorf("%s: redrive policy presence = %v, want %v", name, hasPolicy, isPrimary)
			continue
		}
		if hasPolicy {
			var policy redrivePolicy
			if err := json.Unmarshal([]byte(policyJSON), &policy); err != nil {
				t.Fatalf("%s: invalid redrive policy JSON: %v", name, err)
			}
			if policy.MaxReceiveCount != types.MaxReceiveCount {
				t.Errorf("%s: maxReceiveCount %d", name, policy.MaxReceiveCount)
			}
			if policy.DeadLetterTargetArn == "" {
				t.Errorf("%s: empty deadLetterTargetArn", name)
			}
		}
	}

	for _, spec := range []QueueSpec{topo.Notifications, topo.NotificationsDLQ, topo.Emails, topo.EmailsDLQ} {
		if result.QueueURLs[spec.Name] == "" {
			t.Errorf("no URL recorded for %s", spec.Name)
		}
	}
}
