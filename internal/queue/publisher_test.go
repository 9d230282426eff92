package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"edumatch/internal/types"
)

// mockSQSSender records SendMessage calls for verification.
type mockSQSSender struct {
	calls     []*sqs.SendMessageInput
	returnErr error
}

func (m *mockSQSSender) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.calls = append(m.calls, params)
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("sqs-msg-1")}, nil
}

// nopLogger discards all log output.
type nopLogger struct{}

func (nopLogger) Info(string, ...any)      {}
func (nopLogger) Error(string, ...any)     {}
func (nopLogger) Warn(string, ...any)      {}
func (nopLogger) With(...any) types.Logger { return nopLogger{} }

func TestPublisher_SetsFIFOKeysAndAttributes(t *testing.T) {
	sender := &mockSQSSender{}
	p := NewPublisher(sender, nopLogger{})

	msg := types.NotificationMessage{
		ID:        "n-123",
		Kind:      types.KindPaymentSuccess,
		UserID:    "u-1",
		UserEmail: "student@example.com",
		Metadata:  json.RawMessage(`{"planName":"Pro","currency":"EUR","amount":49.9}`),
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	if err := p.Publish(context.Background(), "https://sqs.test/q.fifo", msg); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(sender.calls) != 1 {
		t.Fatalf("expected 1 SendMessage call, got %d", len(sender.calls))
	}
	input := sender.calls[0]

	if aws.ToString(input.QueueUrl) != "https://sqs.test/q.fifo" {
		t.Errorf("unexpected queue URL %q", aws.ToString(input.QueueUrl))
	}
	if aws.ToString(input.MessageDeduplicationId) != "n-123" {
		t.Errorf("expected dedup ID n-123, got %q", aws.ToString(input.MessageDeduplicationId))
	}
	if aws.ToString(input.MessageGroupId) != "student@example.com" {
		t.Errorf("expected group ID student@example.com, got %q", aws.ToString(input.MessageGroupId))
	}

	kindAttr, ok := input.MessageAttributes[types.AttrKind]
	if !ok || aws.ToString(kindAttr.StringValue) != string(types.KindPaymentSuccess) {
		t.Errorf("missing or wrong Type attribute: %+v", kindAttr)
	}
	emailAttr, ok := input.MessageAttributes[types.AttrUserEmail]
	if !ok || aws.ToString(emailAttr.StringValue) != "student@example.com" {
		t.Errorf("missing or wrong UserEmail attribute: %+v", emailAttr)
	}

	// The body round-trips to the same envelope.
	var decoded types.NotificationMessage
	if err := json.Unmarshal([]byte(aws.ToString(input.MessageBody)), &decoded); err != nil {
		t.Fatalf("body is not a valid envelope: %v", err)
	}
	if decoded.ID != msg.ID || decoded.Kind != msg.Kind || decoded.UserEmail != msg.UserEmail {
		t.Errorf("body fields do not match: %+v", decoded)
	}
}

func TestPublisher_WrapsSendFailure(t *testing.T) {
	sender := &mockSQSSender{returnErr: errors.New("throttled")}
	p := NewPublisher(sender, nopLogger{})

	err := p.Publish(context.Background(), "https://sqs.test/q.fifo",
		types.NotificationMessage{ID: "n-1", Kind: types.KindWelcome, UserID: "u", UserEmail: "a@b.com"})
	if err == nil {
		t.Fatal("expected error")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeQueuePublish {
		t.Errorf("expected code %s, got %s", types.ErrCodeQueuePublish, appErr.Code)
	}
}
