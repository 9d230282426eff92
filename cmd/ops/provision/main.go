// Package main implements the provisioning CLI for the notification pipeline.
//
// The tool creates the pipeline's queue topology: the notifications and
// emails FIFO queues, their paired dead-letter queues, and the redrive
// policies binding them. When --database-url is supplied it also applies the
// job table schema for the Postgres-backed queue variant.
//
// Usage:
//
//	go run ./cmd/ops/provision --env=dev
//	go run ./cmd/ops/provision --env=local --endpoint=http://localhost:4566
//	go run ./cmd/ops/provision --env=dev --database-url=postgres://...
//
// CreateQueue is idempotent for identical attributes, so the tool is safe to
// re-run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

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

func main() {
	env := flag.String("env", "", "target environment (local/dev/staging/prod)")
	region := flag.String("region", "us-east-1", "AWS region")
	endpoint := flag.String("endpoint", "", "SQS endpoint override (LocalStack)")
	databaseURL := flag.String("database-url", "", "apply the job table schema to this Postgres database")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	typedLogger := &slogAdapter{logger: logger}

	if *env == "" {
		logger.Error("--env is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

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

	topo := queue.DefaultTopology(*env)
	result, err := queue.EnsureTopology(ctx, sqsClient, topo, typedLogger)
	if err != nil {
		logger.Error("queue provisioning failed", "error", err)
		os.Exit(1)
	}

	for name, url := range result.QueueURLs {
		fmt.Printf("%s\t%s\n", name, url)
	}

	if *databaseURL != "" {
		if err := applySchema(ctx, *databaseURL); err != nil {
			logger.Error("schema application failed", "error", err)
			os.Exit(1)
		}
		logger.Info("job table schema applied")
	}

	logger.Info("pipeline topology ready", "environment", *env)
}

// applySchema creates the notification job table for the Postgres-backed
// queue variant.
func applySchema(ctx context.Context, databaseURL string) error {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, queue.Schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
