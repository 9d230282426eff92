// Package relay implements the Notification Worker: the first pipeline stage,
// which moves validated notification envelopes from the notifications queue to
// the emails queue unchanged.
//
// The stage exists as a routing seam: future channels (SMS, push) attach here
// without touching the producer or the email worker.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"edumatch/internal/notifications/core"
	"edumatch/internal/types"
)

// Handler holds the dependencies for the Notification Worker Lambda handler.
type Handler struct {
	publisher      types.QueuePublisher
	emailsQueueURL string
	metrics        core.PipelineMetrics
	logger         types.Logger
}

// NewHandler creates a relay handler publishing to the given emails queue.
func NewHandler(publisher types.QueuePublisher, emailsQueueURL string, metrics core.PipelineMetrics, logger types.Logger) *Handler {
	return &Handler{
		publisher:      publisher,
		emailsQueueURL: emailsQueueURL,
		metrics:        metrics,
		logger:         logger,
	}
}

// Handle processes an SQS event from the notifications queue.
//
// The relay returns a whole-batch error on the first failure of any kind:
// records in one FIFO batch share group ordering, and letting later records
// of the same group advance past a failed one would reorder the group.
// Redelivering the full batch is safe because forwarding is idempotent (the
// emails queue deduplicates by message ID).
//
// Envelopes that fail to parse or validate also raise: the message is
// redelivered until the redrive policy moves it to the DLQ, where it stays
// visible for manual inspection instead of being dropped.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) error {
	for _, record := range sqsEvent.Records {
		h.recordQueueLag(ctx, record)

		msg, err := decodeEnvelope(record.Body)
		if err != nil {
			h.logger.Error("invalid notification envelope",
				"message_id", record.MessageId,
				"error", err.Error(),
			)
			h.metrics.RecordRelay(ctx, types.RelayRejected)
			return fmt.Errorf("decode notification %s: %w", record.MessageId, err)
		}

		logger := h.logger.With(
			"notification_id", msg.ID,
			"notification_type", string(msg.Kind),
			"user_id", msg.UserID,
		)

		if err := h.publisher.Publish(ctx, h.emailsQueueURL, msg); err != nil {
			logger.Error("failed to forward notification to emails queue",
				"error", err.Error(),
			)
			return fmt.Errorf("forward notification %s: %w", msg.ID, err)
		}

		h.metrics.RecordRelay(ctx, types.RelayForwarded)
		logger.Info("notification forwarded to emails queue")
	}

	return nil
}

// decodeEnvelope parses and validates a raw queue message body.
func decodeEnvelope(body string) (types.NotificationMessage, error) {
	var msg types.NotificationMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return types.NotificationMessage{}, types.NewAppError(
			types.ErrCodeValidationEnvelope, "message body is not a valid envelope", err)
	}
	if err := msg.Validate(); err != nil {
		return types.NotificationMessage{}, err
	}
	return msg, nil
}

// recordQueueLag emits the time between SQS enqueue and processing start.
func (h *Handler) recordQueueLag(ctx context.Context, record events.SQSMessage) {
	sentTimestamp, ok := record.Attributes["SentTimestamp"]
	if !ok {
		return
	}
	sent, err := parseMillisTimestamp(sentTimestamp)
	if err != nil {
		return
	}
	h.metrics.RecordQueueLag(ctx, core.StageRelay, time.Since(sent))
}

// parseMillisTimestamp parses a millisecond-epoch string into a time.Time.
func parseMillisTimestamp(ms string) (time.Time, error) {
	var millis int64
	if _, err := fmt.Sscanf(ms, "%d", &millis); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(millis), nil
}
