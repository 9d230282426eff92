package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"edumatch/internal/types"
)

// nopLogger discards all log output.
type nopLogger struct{}

func (nopLogger) Info(string, ...any)      {}
func (nopLogger) Error(string, ...any)     {}
func (nopLogger) Warn(string, ...any)      {}
func (nopLogger) With(...any) types.Logger { return nopLogger{} }

// mockCloudWatchClient records PutMetricData calls for verification.
type mockCloudWatchClient struct {
	calls     []*cloudwatch.PutMetricDataInput
	returnErr error
}

func (m *mockCloudWatchClient) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.calls = append(m.calls, params)
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func newTestMetrics(cw *mockCloudWatchClient) *CloudWatchPipelineMetrics {
	return NewCloudWatchPipelineMetrics(cw, "EduMatchNotifications", nopLogger{})
}

func TestRecordRelay(t *testing.T) {
	cw := &mockCloudWatchClient{}
	m := newTestMetrics(cw)

	m.RecordRelay(context.Background(), types.RelayForwarded)

	if len(cw.calls) != 1 {
		t.Fatalf("expected 1 PutMetricData call, got %d", len(cw.calls))
	}
	input := cw.calls[0]
	if *input.Namespace != "EduMatchNotifications" {
		t.Errorf("unexpected namespace %q", *input.Namespace)
	}

	datum := input.MetricData[0]
	if *datum.MetricName != MetricRelayRecord {
		t.Errorf("unexpected metric name %q", *datum.MetricName)
	}
	if *datum.Value != 1.0 || datum.Unit != cwtypes.StandardUnitCount {
		t.Errorf("unexpected datum %v %s", *datum.Value, datum.Unit)
	}
	assertDimension(t, datum.Dimensions, DimResult, string(types.RelayForwarded))
}

func TestRecordDelivery_SentIncludesRoute(t *testing.T) {
	cw := &mockCloudWatchClient{}
	m := newTestMetrics(cw)

	m.RecordDelivery(context.Background(), types.KindWelcome, types.DeliverySent, types.RouteFallback)

	datum := cw.calls[0].MetricData[0]
	if *datum.MetricName != MetricDeliveryAttempt {
		t.Errorf("unexpected metric name %q", *datum.MetricName)
	}
	assertDimension(t, datum.Dimensions, DimKind, string(types.KindWelcome))
	assertDimension(t, datum.Dimensions, DimResult, string(types.DeliverySent))
	assertDimension(t, datum.Dimensions, DimRoute, string(types.RouteFallback))
}

func TestRecordDelivery_FailedOmitsRoute(t *testing.T) {
	cw := &mockCloudWatchClient{}
	m := newTestMetrics(cw)

	m.RecordDelivery(context.Background(), types.KindPaymentFailed, types.DeliveryFailed, "")

	datum := cw.calls[0].MetricData[0]
	for _, d := range datum.Dimensions {
		if *d.Name == DimRoute {
			t.Errorf("route dimension present on failed delivery: %q", *d.Value)
		}
	}
	assertDimension(t, datum.Dimensions, DimResult, string(types.DeliveryFailed))
}

func TestRecordDeliveryLatency(t *testing.T) {
	cw := &mockCloudWatchClient{}
	m := newTestMetrics(cw)

	m.RecordDeliveryLatency(context.Background(), types.RoutePrimary, 250*time.Millisecond)

	datum := cw.calls[0].MetricData[0]
	if *datum.Value != 250.0 || datum.Unit != cwtypes.StandardUnitMilliseconds {
		t.Errorf("unexpected latency datum %v %s", *datum.Value, datum.Unit)
	}
	assertDimension(t, datum.Dimensions, DimRoute, string(types.RoutePrimary))
}

func TestRecordQueueLag(t *testing.T) {
	cw := &mockCloudWatchClient{}
	m := newTestMetrics(cw)

	m.RecordQueueLag(context.Background(), StageEmail, 3*time.Second)

	datum := cw.calls[0].MetricData[0]
	if *datum.MetricName != MetricQueueLag {
		t.Errorf("unexpected metric name %q", *datum.MetricName)
	}
	if *datum.Value != 3000.0 {
		t.Errorf("expected 3000ms, got %f", *datum.Value)
	}
	assertDimension(t, datum.Dimensions, DimStage, string(StageEmail))
}

func TestMetrics_CloudWatchErrorIsSwallowed(t *testing.T) {
	cw := &mockCloudWatchClient{returnErr: fmt.Errorf("cloudwatch unavailable")}
	m := newTestMetrics(cw)

	// Must not panic or propagate.
	m.RecordRelay(context.Background(), types.RelayRejected)

	if len(cw.calls) != 1 {
		t.Errorf("expected 1 call attempt, got %d", len(cw.calls))
	}
}

// assertDimension verifies a specific dimension exists with the expected value.
func assertDimension(t *testing.T, dims []cwtypes.Dimension, name, expectedValue string) {
	t.Helper()
	for _, d := range dims {
		if *d.Name == name {
			if *d.Value != expectedValue {
				t.Errorf("dimension %q: expected value %q, got %q", name, expectedValue, *d.Value)
			}
			return
		}
	}
	t.Errorf("dimension %q not found", name)
}
