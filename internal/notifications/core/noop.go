package core

import (
	"context"
	"time"

	"edumatch/internal/types"
)

// NoopMetrics discards all metrics. Used by local worker runs and tests that
// do not assert on telemetry.
type NoopMetrics struct{}

var _ PipelineMetrics = NoopMetrics{}

func (NoopMetrics) RecordRelay(context.Context, types.RelayResult) {}
func (NoopMetrics) RecordDelivery(context.Context, types.NotificationKind, types.DeliveryResult, types.DeliveryRoute) {
}
func (NoopMetrics) RecordDeliveryLatency(context.Context, types.DeliveryRoute, time.Duration) {}
func (NoopMetrics) RecordQueueLag(context.Context, Stage, time.Duration)                      {}
