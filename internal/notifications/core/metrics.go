package core

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"edumatch/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchPipelineMetrics implements PipelineMetrics by emitting metrics to
// AWS CloudWatch.
//
// Metrics emitted:
//   - RelayRecord: Dims {Result} -- on every Notification Worker record
//   - DeliveryAttempt: Dims {NotificationType, Result, Route} -- on every Email Worker record
//   - DeliveryLatency: Dims {Route} -- wall time of the delivery attempt chain
//   - QueueLag: Dims {Stage} -- time between enqueue and processing start
type CloudWatchPipelineMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// Compile-time assertion that CloudWatchPipelineMetrics implements PipelineMetrics.
var _ PipelineMetrics = (*CloudWatchPipelineMetrics)(nil)

// NewCloudWatchPipelineMetrics creates a PipelineMetrics that publishes to the
// given CloudWatch namespace.
func NewCloudWatchPipelineMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchPipelineMetrics {
	return &CloudWatchPipelineMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordRelay emits a RelayRecord count with the Result dimension.
func (m *CloudWatchPipelineMetrics) RecordRelay(ctx context.Context, result types.RelayResult) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricRelayRecord),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(DimResult), Value: aws.String(string(result))},
		},
	}, "result", string(result))
}

// RecordDelivery emits a DeliveryAttempt count dimensioned by notification
// kind, result, and route. Route is omitted for skipped and failed records,
// where no endpoint accepted the email.
func (m *CloudWatchPipelineMetrics) RecordDelivery(ctx context.Context, kind types.NotificationKind, result types.DeliveryResult, route types.DeliveryRoute) {
	dims := []cwtypes.Dimension{
		{Name: aws.String(DimKind), Value: aws.String(string(kind))},
		{Name: aws.String(DimResult), Value: aws.String(string(result))},
	}
	if route != "" {
		dims = append(dims, cwtypes.Dimension{
			Name: aws.String(DimRoute), Value: aws.String(string(route)),
		})
	}

	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricDeliveryAttempt),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: dims,
	}, "kind", string(kind), "result", string(result))
}

// RecordDeliveryLatency emits the delivery latency in milliseconds with the
// Route dimension.
func (m *CloudWatchPipelineMetrics) RecordDeliveryLatency(ctx context.Context, route types.DeliveryRoute, duration time.Duration) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricDeliveryLatency),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(DimRoute), Value: aws.String(string(route))},
		},
	}, "route", string(route), "duration_ms", duration.Milliseconds())
}

// RecordQueueLag emits the time between message enqueue and worker processing
// start, per pipeline stage. This measures queue backlog plus any redelivery
// delay from visibility timeouts.
func (m *CloudWatchPipelineMetrics) RecordQueueLag(ctx context.Context, stage Stage, lag time.Duration) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricQueueLag),
		Value:      aws.Float64(float64(lag.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(DimStage), Value: aws.String(string(stage))},
		},
	}, "stage", string(stage), "lag_ms", lag.Milliseconds())
}

// put sends a single datum, logging failures instead of returning them.
func (m *CloudWatchPipelineMetrics) put(ctx context.Context, datum cwtypes.MetricDatum, logArgs ...any) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		args := append([]any{"error", err.Error(), "metric", aws.ToString(datum.MetricName)}, logArgs...)
		m.logger.Error("failed to record metric", args...)
	}
}
