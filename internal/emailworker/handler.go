// Package emailworker implements the Email Worker: the second pipeline stage,
// which renders notification envelopes into emails and delivers them through
// the primary/fallback endpoint chain.
package emailworker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"golang.org/x/sync/errgroup"

	"edumatch/internal/notifications/core"
	"edumatch/internal/notifications/email"
	"edumatch/internal/types"
)

// maxConcurrentGroups bounds how many ordering groups one invocation renders
// and delivers in parallel.
const maxConcurrentGroups = 4

// Handler holds the dependencies for the Email Worker Lambda handler.
type Handler struct {
	registry *email.Registry
	sender   types.EmailSender
	metrics  core.PipelineMetrics
	logger   types.Logger
	from     string
}

// NewHandler creates an email worker handler. The from argument is the
// RFC 5322 From header value stamped on every outbound email.
func NewHandler(registry *email.Registry, sender types.EmailSender, metrics core.PipelineMetrics, logger types.Logger, from string) *Handler {
	return &Handler{
		registry: registry,
		sender:   sender,
		metrics:  metrics,
		logger:   logger,
		from:     from,
	}
}

// FromHeader formats a display-name From header value.
func FromHeader(name, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}

// Handle processes an SQS event from the emails queue using partial batch
// responses: only records whose processing failed are returned for
// redelivery, and after the receive budget the queue redrives them to the
// DLQ.
//
// Records are partitioned by message group and the groups processed
// concurrently. Within a group, records run strictly in order, and once one
// record of a group fails, the group's remaining records are failed unsent so
// the queue redelivers them in order behind the failed one.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	groups := partitionByGroup(sqsEvent.Records)

	var (
		mu       sync.Mutex
		failures []events.SQSBatchItemFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentGroups)

	for _, records := range groups {
		records := records
		g.Go(func() error {
			for i, record := range records {
				if err := h.processRecord(gctx, record); err != nil {
					mu.Lock()
					for _, rest := range records[i:] {
						failures = append(failures, events.SQSBatchItemFailure{
							ItemIdentifier: rest.MessageId,
						})
					}
					mu.Unlock()
					return nil
				}
			}
			return nil
		})
	}

	// Goroutines return nil; Wait only propagates gctx cancellation.
	if err := g.Wait(); err != nil {
		return events.SQSEventResponse{}, err
	}

	return events.SQSEventResponse{BatchItemFailures: failures}, nil
}

// processRecord runs one message through render and delivery. A nil return
// acknowledges the record; an error marks it for redelivery.
func (h *Handler) processRecord(ctx context.Context, record events.SQSMessage) error {
	h.recordQueueLag(ctx, record)

	var msg types.NotificationMessage
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		// Parse failures are redelivered like any other processing error so
		// the redrive policy lands the message in the DLQ for inspection.
		h.logger.Error("malformed email job body",
			"message_id", record.MessageId,
			"error", err.Error(),
		)
		h.metrics.RecordDelivery(ctx, msg.Kind, types.DeliveryFailed, "")
		return fmt.Errorf("decode email job %s: %w", record.MessageId, err)
	}

	logger := h.logger.With(
		"notification_id", msg.ID,
		"notification_type", string(msg.Kind),
		"user_id", msg.UserID,
	)

	rendered, ok := h.registry.Render(msg.Kind, msg.Metadata)
	if !ok {
		// No template for this kind. Skip rather than fail: the envelope is
		// well-formed, there is simply nothing to send for it.
		logger.Warn("no email template registered for notification type, skipping")
		h.metrics.RecordDelivery(ctx, msg.Kind, types.DeliverySkipped, "")
		return nil
	}

	outbound := types.OutboundEmail{
		To:      msg.UserEmail,
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		From:    h.from,
	}

	start := time.Now()
	messageID, route, err := h.sender.Deliver(ctx, outbound)
	if err != nil {
		logger.Error("email delivery failed on all endpoints",
			"error", err.Error(),
		)
		h.metrics.RecordDelivery(ctx, msg.Kind, types.DeliveryFailed, "")
		return err
	}

	h.metrics.RecordDelivery(ctx, msg.Kind, types.DeliverySent, route)
	h.metrics.RecordDeliveryLatency(ctx, route, time.Since(start))
	logger.Info("email delivered",
		"route", string(route),
		"provider_message_id", messageID,
	)
	return nil
}

// partitionByGroup splits records by SQS message group, preserving record
// order within each group. Records without a group attribute (direct
// invocations, tests) fall back to the envelope's group key.
func partitionByGroup(records []events.SQSMessage) map[string][]events.SQSMessage {
	groups := make(map[string][]events.SQSMessage)
	for _, record := range records {
		group := record.Attributes["MessageGroupId"]
		if group == "" {
			var msg types.NotificationMessage
			if err := json.Unmarshal([]byte(record.Body), &msg); err == nil {
				group = msg.GroupKey()
			}
		}
		groups[group] = append(groups[group], record)
	}
	return groups
}

// recordQueueLag emits the time between SQS enqueue and processing start.
func (h *Handler) recordQueueLag(ctx context.Context, record events.SQSMessage) {
	sentTimestamp, ok := record.Attributes["SentTimestamp"]
	if !ok {
		return
	}
	var millis int64
	if _, err := fmt.Sscanf(sentTimestamp, "%d", &millis); err != nil {
		return
	}
	h.metrics.RecordQueueLag(ctx, core.StageEmail, time.Since(time.UnixMilli(millis)))
}
