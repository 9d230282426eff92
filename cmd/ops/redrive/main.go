// Package main implements the DLQ drain CLI for the notification pipeline.
//
// The tool receives every message from a dead-letter queue, archives them to
// a zstd-compressed NDJSON file for postmortem analysis, and optionally
// republishes them to a primary queue once the underlying failure is fixed.
// Messages are deleted from the DLQ only after they are safely archived (and
// republished, when a target is given).
//
// Usage:
//
//	go run ./cmd/ops/redrive --queue-url=https://sqs.../dev-emails-dlq.fifo
//	go run ./cmd/ops/redrive --queue-url=... --target-url=... --archive=drain.ndjson.zst
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/klauspost/compress/zstd"

	"edumatch/internal/queue"
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

// archiveRecord is one NDJSON line in the drain archive.
type archiveRecord struct {
	MessageID  string            `json:"messageId"`
	Body       json.RawMessage   `json:"body"`
	Attributes map[string]string `json:"attributes,omitempty"`
	DrainedAt  time.Time         `json:"drainedAt"`
}

func main() {
	queueURL := flag.String("queue-url", "", "DLQ URL to drain")
	targetURL := flag.String("target-url", "", "republish drained messages to this queue")
	archivePath := flag.String("archive", "", "archive file path (default dlq-drain-<timestamp>.ndjson.zst)")
	region := flag.String("region", "us-east-1", "AWS region")
	endpoint := flag.String("endpoint", "", "SQS endpoint override (LocalStack)")
	limit := flag.Int("limit", 0, "stop after this many messages (0 = drain fully)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	typedLogger := &slogAdapter{logger: logger}

	if *queueURL == "" {
		logger.Error("--queue-url is required")
		os.Exit(1)
	}
	if *archivePath == "" {
		*archivePath = fmt.Sprintf("dlq-drain-%s.ndjson.zst", time.Now().UTC().Format("20060102T150405Z"))
	}

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(*region))
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if *endpoint != "" {
			o.BaseEndpoint = aws.String(*endpoint)
		}
	})

	archive, err := os.Create(*archivePath)
	if err != nil {
		logger.Error("failed to create archive file", "path", *archivePath, "error", err)
		os.Exit(1)
	}
	defer archive.Close()

	zw, err := zstd.NewWriter(archive)
	if err != nil {
		logger.Error("failed to create zstd writer", "error", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(zw)

	var publisher *queue.Publisher
	if *targetURL != "" {
		publisher = queue.NewPublisher(sqsClient, typedLogger)
	}

	drained, republished := 0, 0
	for *limit == 0 || drained < *limit {
		out, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(*queueURL),
			MaxNumberOfMessages:   int32(types.BatchSize),
			WaitTimeSeconds:       1,
			AttributeNames:        []sqsTypes.QueueAttributeName{sqsTypes.QueueAttributeNameAll},
			MessageAttributeNames: []string{"All"},
		})
		if err != nil {
			logger.Error("failed to receive from DLQ", "error", err)
			os.Exit(1)
		}
		if len(out.Messages) == 0 {
			break
		}

		for _, m := range out.Messages {
			body := aws.ToString(m.Body)

			record := archiveRecord{
				MessageID:  aws.ToString(m.MessageId),
				Body:       json.RawMessage(body),
				Attributes: m.Attributes,
				DrainedAt:  time.Now().UTC(),
			}
			if !json.Valid(record.Body) {
				// Preserve non-JSON bodies as a JSON string.
				quoted, _ := json.Marshal(body)
				record.Body = quoted
			}
			if err := enc.Encode(record); err != nil {
				logger.Error("failed to write archive record", "error", err)
				os.Exit(1)
			}

			if publisher != nil {
				var msg types.NotificationMessage
				if err := json.Unmarshal([]byte(body), &msg); err != nil {
					logger.Warn("skipping republish of non-envelope message",
						"message_id", aws.ToString(m.MessageId), "error", err)
				} else if err := publisher.Publish(ctx, *targetURL, msg); err != nil {
					logger.Error("failed to republish message, leaving it in the DLQ",
						"message_id", aws.ToString(m.MessageId), "error", err)
					continue
				} else {
					republished++
				}
			}

			if _, err := sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(*queueURL),
				ReceiptHandle: m.ReceiptHandle,
			}); err != nil {
				logger.Error("failed to delete message from DLQ",
					"message_id", aws.ToString(m.MessageId), "error", err)
				os.Exit(1)
			}
			drained++
		}
	}

	if err := zw.Close(); err != nil {
		logger.Error("failed to finalize archive", "error", err)
		os.Exit(1)
	}

	logger.Info("DLQ drain complete",
		"drained", drained,
		"republished", republished,
		"archive", *archivePath,
	)
}
