// Package main is the entrypoint for the Email Worker Lambda function.
//
// The Email Worker consumes envelopes from the emails FIFO queue, renders
// them through the template registry, and delivers them via the
// primary/fallback endpoint chain. It uses SQS partial batch responses:
// records whose delivery failed are reported in batchItemFailures so the
// queue redelivers only those.
//
// Cold Start (main):
//  1. Initialize structured logger.
//  2. Load pipeline configuration.
//  3. Load AWS SDK configuration, CloudWatch client.
//  4. Build the template registry and the delivery sender.
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
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"edumatch/internal/config"
	"edumatch/internal/emailworker"
	"edumatch/internal/external"
	"edumatch/internal/notifications/core"
	"edumatch/internal/notifications/email"
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

	logger.Info("Email Worker Lambda initializing (cold start)")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	var metrics core.PipelineMetrics = core.NoopMetrics{}
	if cfg.Environment != "local" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Queues.Region))
		if err != nil {
			logger.Error("Failed to load AWS SDK config", "error", err)
			os.Exit(1)
		}
		cwClient := cloudwatch.NewFromConfig(awsCfg)
		metrics = core.NewCloudWatchPipelineMetrics(cwClient, cfg.Observability.MetricNamespace, typedLogger)
	}

	registry := email.DefaultRegistry()
	sender := external.NewDeliverySender(cfg.Delivery, typedLogger)
	from := emailworker.FromHeader(cfg.Delivery.FromName, cfg.Delivery.FromAddress)

	handler := emailworker.NewHandler(registry, sender, metrics, typedLogger, from)

	logger.Info("Email Worker Lambda initialized",
		"emails_queue", cfg.Queues.EmailsQueue,
		"primary_endpoint", cfg.Delivery.PrimaryURL,
		"fallback_endpoint", cfg.Delivery.FallbackURL,
		"from_address", cfg.Delivery.FromAddress,
	)

	// Local mode: read a JSON SQS event from stdin instead of starting the
	// Lambda runtime.
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
		response, err := handler.Handle(context.Background(), sqsEvent)
		if err != nil {
			logger.Error("Handler execution failed", "error", err)
			os.Exit(1)
		}
		if len(response.BatchItemFailures) > 0 {
			respJSON, _ := json.MarshalIndent(response, "", "  ")
			fmt.Fprintln(os.Stderr, string(respJSON))
		}
		logger.Info("Handler execution completed successfully",
			"records_processed", len(sqsEvent.Records),
			"failures", len(response.BatchItemFailures),
		)
		return
	}

	lambda.Start(handler.Handle)
}
