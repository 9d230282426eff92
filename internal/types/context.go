package types

import "context"

// contextKey is a private type preventing collisions with other packages'
// context values.
type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID returns a context carrying the given request/trace ID.
// Workers seed this from the SQS message ID so outbound HTTP calls and log
// lines correlate with the queue record being processed.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID extracts the request/trace ID from the context, or returns
// the empty string when none is set.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
