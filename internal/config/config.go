// Package config defines the global configuration structure for the EduMatch
// notification pipeline. Configuration is loaded once at process
// initialization (Lambda Cold Start) and is immutable thereafter. It follows
// 12-Factor App principles by strictly separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup (fail fast).
package config

import (
	"time"

	"edumatch/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the notification pipeline.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"edumatch-notifications"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server        ServerConfig
	Queues        QueueConfig
	Delivery      DeliveryConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration for the producer API.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// QueueConfig holds the SQS queue URLs for both pipeline stages and their
// dead-letter queues. The DLQ URLs are only needed by operational tooling;
// workers interact with DLQs exclusively through the queue redrive policy.
type QueueConfig struct {
	NotificationsQueue string `envconfig:"SQS_NOTIFICATIONS" validate:"required,url"`
	EmailsQueue        string `envconfig:"SQS_EMAILS" validate:"required,url"`
	NotificationsDLQ   string `envconfig:"SQS_NOTIFICATIONS_DLQ"`
	EmailsDLQ          string `envconfig:"SQS_EMAILS_DLQ"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
	Region      string `envconfig:"AWS_REGION" default:"us-east-1"`
}

// DeliveryConfig holds the email delivery endpoint chain. Both endpoints are
// explicit configuration; the worker never infers reachability from the
// environment. The primary attempt is bounded by PrimaryTimeout; the fallback
// attempt relies on the queue visibility timeout as its outer bound.
type DeliveryConfig struct {
	PrimaryURL     string        `envconfig:"DELIVERY_PRIMARY_URL" validate:"required,url"`
	FallbackURL    string        `envconfig:"DELIVERY_FALLBACK_URL" validate:"required,url"`
	PrimaryTimeout time.Duration `envconfig:"DELIVERY_PRIMARY_TIMEOUT" default:"2s"`
	AuthToken      SecretString  `envconfig:"DELIVERY_AUTH_TOKEN"`
	FromAddress    string        `envconfig:"EMAIL_FROM_ADDRESS" default:"notifications@edumatch.io"`
	FromName       string        `envconfig:"EMAIL_FROM_NAME" default:"EduMatch"`
}

// DatabaseConfig holds connection parameters for the optional Postgres-backed
// queue variant. URL is empty unless the deployment runs without SQS.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL"`

	// Tuning Parameters
	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout  time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
}

// ObservabilityConfig holds telemetry and monitoring settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"EduMatchNotifications"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
