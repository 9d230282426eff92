// Package core holds the pipeline-wide telemetry contracts shared by the
// notification relay and the email worker.
package core

import (
	"context"
	"time"

	"edumatch/internal/types"
)

// Metric names and dimensions emitted by the pipeline.
const (
	MetricRelayRecord     = "RelayRecord"
	MetricDeliveryAttempt = "DeliveryAttempt"
	MetricDeliveryLatency = "DeliveryLatency"
	MetricQueueLag        = "QueueLag"

	DimResult = "Result"
	DimRoute  = "Route"
	DimKind   = "NotificationType"
	DimStage  = "Stage"
)

// Stage identifies which pipeline stage emitted a metric.
type Stage string

const (
	StageRelay Stage = "relay"
	StageEmail Stage = "email"
)

// PipelineMetrics abstracts telemetry for both workers. Implementations must
// never fail the caller: a metrics outage costs data points, not emails.
type PipelineMetrics interface {
	// RecordRelay counts one Notification Worker record outcome.
	RecordRelay(ctx context.Context, result types.RelayResult)

	// RecordDelivery counts one Email Worker record outcome, dimensioned by
	// notification kind and (for sent emails) the route that accepted it.
	RecordDelivery(ctx context.Context, kind types.NotificationKind, result types.DeliveryResult, route types.DeliveryRoute)

	// RecordDeliveryLatency records the wall time of one delivery attempt
	// chain, from first primary byte to final outcome.
	RecordDeliveryLatency(ctx context.Context, route types.DeliveryRoute, duration time.Duration)

	// RecordQueueLag records the time between message enqueue and processing
	// start, per pipeline stage.
	RecordQueueLag(ctx context.Context, stage Stage, lag time.Duration)
}
