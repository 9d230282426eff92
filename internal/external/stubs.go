package external

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"edumatch/internal/types"
)

// StubSender is a local-mode EmailSender that records deliveries instead of
// making HTTP calls. Used by local worker runs and tests.
type StubSender struct {
	log types.Logger

	mu   sync.Mutex
	seq  atomic.Uint64
	sent []types.OutboundEmail

	// FailWith, when set, makes every Deliver call fail with this error.
	FailWith error
}

var _ types.EmailSender = (*StubSender)(nil)

// NewStubSender creates a stub sender that logs each delivery.
func NewStubSender(log types.Logger) *StubSender {
	return &StubSender{log: log}
}

// Deliver records the email and returns a synthetic message ID on the primary
// route.
func (s *StubSender) Deliver(ctx context.Context, email types.OutboundEmail) (string, types.DeliveryRoute, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if s.FailWith != nil {
		return "", "", s.FailWith
	}

	s.mu.Lock()
	s.sent = append(s.sent, email)
	s.mu.Unlock()

	id := fmt.Sprintf("stub-%d", s.seq.Add(1))
	if s.log != nil {
		s.log.Info("stub delivery",
			"to", email.To,
			"subject", email.Subject,
			"messageId", id,
		)
	}
	return id, types.RoutePrimary, nil
}

// Sent returns a copy of every email delivered so far.
func (s *StubSender) Sent() []types.OutboundEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.OutboundEmail, len(s.sent))
	copy(out, s.sent)
	return out
}
