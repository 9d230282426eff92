package relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"edumatch/internal/notifications/core"
	"edumatch/internal/types"
)

// nopLogger discards all log output.
type nopLogger struct{}

func (nopLogger) Info(string, ...any)      {}
func (nopLogger) Error(string, ...any)     {}
func (nopLogger) Warn(string, ...any)      {}
func (nopLogger) With(...any) types.Logger { return nopLogger{} }

// mockPublisher records Publish calls and can fail on demand.
type mockPublisher struct {
	published []types.NotificationMessage
	queueURLs []string
	failAfter int
	returnErr error
}

func (m *mockPublisher) Publish(_ context.Context, queueURL string, msg types.NotificationMessage) error {
	if m.returnErr != nil && len(m.published) >= m.failAfter {
		return m.returnErr
	}
	m.published = append(m.published, msg)
	m.queueURLs = append(m.queueURLs, queueURL)
	return nil
}

// countingMetrics tallies relay outcomes.
type countingMetrics struct {
	core.NoopMetrics
	forwarded int
	rejected  int
}

func (m *countingMetrics) RecordRelay(_ context.Context, result types.RelayResult) {
	switch result {
	case types.RelayForwarded:
		m.forwarded++
	case types.RelayRejected:
		m.rejected++
	}
}

func sqsRecord(t *testing.T, msg types.NotificationMessage) events.SQSMessage {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return events.SQSMessage{
		MessageId: "sqs-" + msg.ID,
		Body:      string(body),
		Attributes: map[string]string{
			"MessageGroupId": msg.GroupKey(),
		},
	}
}

func validMessage(id string) types.NotificationMessage {
	return types.NotificationMessage{
		ID:        id,
		Kind:      types.KindProfileCreated,
		UserID:    "u-1",
		UserEmail: "student@example.com",
		Metadata:  json.RawMessage(`{"firstName":"Ana","profileType":"student"}`),
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHandle_ForwardsEnvelopeUnchanged(t *testing.T) {
	pub := &mockPublisher{}
	metrics := &countingMetrics{}
	h := NewHandler(pub, "https://sqs.test/emails.fifo", metrics, nopLogger{})

	msg := validMessage("n-1")
	err := h.Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{sqsRecord(t, msg)},
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected 1 forwarded message, got %d", len(pub.published))
	}
	if pub.queueURLs[0] != "https://sqs.test/emails.fifo" {
		t.Errorf("forwarded to wrong queue %q", pub.queueURLs[0])
	}

	got := pub.published[0]
	if got.ID != msg.ID || got.Kind != msg.Kind || got.UserID != msg.UserID ||
		got.UserEmail != msg.UserEmail || string(got.Metadata) != string(msg.Metadata) {
		t.Errorf("envelope mutated in transit: %+v", got)
	}
	if metrics.forwarded != 1 || metrics.rejected != 0 {
		t.Errorf("expected 1 forwarded / 0 rejected, got %d / %d", metrics.forwarded, metrics.rejected)
	}
}

func TestHandle_InvalidEnvelopeFailsBatch(t *testing.T) {
	missingEmail := validMessage("n-2")
	missingEmail.UserEmail = ""
	unknownKind := validMessage("n-3")
	unknownKind.Kind = "CARRIER_PIGEON"

	cases := []struct {
		name   string
		record events.SQSMessage
	}{
		{"malformed json", events.SQSMessage{MessageId: "bad-json", Body: "{not json"}},
		{"missing email", sqsRecord(t, missingEmail)},
		{"unknown kind", sqsRecord(t, unknownKind)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pub := &mockPublisher{}
			metrics := &countingMetrics{}
			h := NewHandler(pub, "https://sqs.test/emails.fifo", metrics, nopLogger{})

			err := h.Handle(context.Background(), events.SQSEvent{
				Records: []events.SQSMessage{tc.record, sqsRecord(t, validMessage("n-4"))},
			})
			if err == nil {
				t.Fatal("expected batch error so the message is redelivered and redriven to the DLQ")
			}

			if len(pub.published) != 0 {
				t.Errorf("forwarding must stop at the invalid envelope, got %+v", pub.published)
			}
			if metrics.rejected != 1 {
				t.Errorf("expected 1 rejected, got %d", metrics.rejected)
			}
			if metrics.forwarded != 0 {
				t.Errorf("expected 0 forwarded, got %d", metrics.forwarded)
			}
		})
	}
}

func TestHandle_PublishFailureFailsWholeBatch(t *testing.T) {
	pub := &mockPublisher{failAfter: 1, returnErr: errors.New("sqs unavailable")}
	h := NewHandler(pub, "https://sqs.test/emails.fifo", &countingMetrics{}, nopLogger{})

	err := h.Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{
			sqsRecord(t, validMessage("n-5")),
			sqsRecord(t, validMessage("n-6")),
			sqsRecord(t, validMessage("n-7")),
		},
	})
	if err == nil {
		t.Fatal("expected batch error on publish failure")
	}

	// Forwarding stops at the failure; the queue redelivers the whole batch
	// and dedup collapses the already forwarded head.
	if len(pub.published) != 1 {
		t.Errorf("expected forwarding to stop after failure, got %d published", len(pub.published))
	}
}
