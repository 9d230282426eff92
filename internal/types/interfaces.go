package types

import (
	"context"
	"time"
)

// Logger defines the structured logging interface used throughout the
// pipeline. slog satisfies the first three methods directly; With needs a
// thin adapter because slog returns *slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// QueuePublisher is the producer-side queue contract. Publish is best-effort
// relative to the business transaction that triggered the event: callers log
// a failure but never roll back the event it describes.
type QueuePublisher interface {
	Publish(ctx context.Context, queueURL string, msg NotificationMessage) error
}

// EmailSender delivers a rendered email through the configured endpoint
// chain. Implementations return the delivery endpoint's message identifier
// and the route that accepted the email.
type EmailSender interface {
	Deliver(ctx context.Context, email OutboundEmail) (messageID string, route DeliveryRoute, err error)
}
