// Package main is the entrypoint for the Notification Worker Lambda function.
//
// The Notification Worker consumes envelopes from the notifications FIFO
// queue, validates them, and forwards them unchanged to the emails FIFO
// queue. Failed forwards redeliver via the queue's visibility timeout and
// eventually redrive to the notifications DLQ.
//
// Cold Start (main):
//  1. Initialize structured logger.
//  2. Load pipeline configuration.
//  3. Load AWS SDK configuration, SQS and CloudWatch clients.
//  4. Initialize the queue publisher and pipeline metrics.
//  5. Register handler and call lambda.Start.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"edumatch/internal/config"
	"edumatch/internal/notifications/core"
	"edumatch/internal/queue"
	"edumatch/internal/relay"
	"edumatch/internal/types"
)

// slogAdapter wraps *slog.Logger to implement the types.Logger interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

var _ types.Logger = (*slogAdapter)(nil)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	typedLogger := &slogAdapter{logger: logger}

	logger.Info("Notification Worker Lambda initializing (cold start)")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Queues.Region))
	if err != nil {
		logger.Error("Failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Queues.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.Queues.EndpointURL)
		}
	})

	var metrics core.PipelineMetrics = core.NoopMetrics{}
	if cfg.Environment != "local" {
		cwClient := cloudwatch.NewFromConfig(awsCfg)
		metrics = core.NewCloudWatchPipelineMetrics(cwClient, cfg.Observability.MetricNamespace, typedLogger)
	}

	publisher := queue.NewPublisher(sqsClient, typedLogger)
	handler := relay.NewHandler(publisher, cfg.Queues.EmailsQueue, metrics, typedLogger)

	logger.Info("Notification Worker Lambda initialized",
		"notifications_queue", cfg.Queues.NotificationsQueue,
		"emails_queue", cfg.Queues.EmailsQueue,
		"metric_namespace", cfg.Observability.MetricNamespace,
	)

	// Local mode: read a JSON SQS event from stdin instead of starting the
	// Lambda runtime. Enables local integration testing without the AWS
	// Lambda RIE.
	if cfg.Environment == "local" {
		logger.Info("APP_ENV=local: reading SQS event from stdin")
		payload, err := io.ReadAll(os.Stdin)
		if err != nil || len(payload) == 0 {
			logger.Error("Failed to read SQS event from stdin", "error", err)
			os.Exit(1)
		}
		var sqsEvent events.SQSEvent
		if err := json.Unmarshal(payload, &sqsEvent); err != nil {
			logger.Error("Failed to parse stdin as SQS event", "error", err)
			os.Exit(1)
		}
		if err := handler.Handle(context.Background(), sqsEvent); err != nil {
			logger.Error("Handler execution failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Handler execution completed successfully",
			"records_processed", len(sqsEvent.Records),
		)
		fmt.Fprintln(os.Stderr, "ok")
		return
	}

	lambda.Start(handler.Handle)
}
