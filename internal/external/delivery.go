package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"edumatch/internal/config"
	"edumatch/internal/types"
)

const userAgent = "edumatch-notifications/1.0"

// DeliverySender implements types.EmailSender against the two-endpoint
// delivery chain: one attempt against the primary endpoint with a short
// timeout, then one attempt against the fallback endpoint. A message whose
// fallback attempt also fails is handed back to the queue for redelivery;
// DeliverySender itself never retries.
type DeliverySender struct {
	primary  *BaseClient
	fallback *BaseClient
	cfg      config.DeliveryConfig
	log      types.Logger
}

var _ types.EmailSender = (*DeliverySender)(nil)

// NewDeliverySender creates the production sender from delivery
// configuration. Each endpoint gets its own circuit breaker so a dead primary
// cannot trip the fallback path. The fallback client carries no timeout of
// its own; the request context (bounded upstream by the queue visibility
// timeout) is its outer limit.
func NewDeliverySender(cfg config.DeliveryConfig, log types.Logger) *DeliverySender {
	return &DeliverySender{
		primary:  NewBaseClient(&http.Client{Timeout: cfg.PrimaryTimeout}, "delivery-primary", userAgent),
		fallback: NewBaseClient(&http.Client{}, "delivery-fallback", userAgent),
		cfg:      cfg,
		log:      log,
	}
}

// Deliver posts the email to the primary endpoint and, if that attempt fails
// for any reason (timeout, connection error, open breaker, non-2xx status),
// posts it once to the fallback endpoint. Exactly one attempt per endpoint.
func (s *DeliverySender) Deliver(ctx context.Context, email types.OutboundEmail) (string, types.DeliveryRoute, error) {
	body, err := json.Marshal(email)
	if err != nil {
		return "", "", types.NewAppError(types.ErrCodeInternalUnexpected,
			"failed to marshal outbound email", err)
	}

	messageID, primaryErr := s.post(ctx, s.primary, s.cfg.PrimaryURL, body)
	if primaryErr == nil {
		return messageID, types.RoutePrimary, nil
	}
	s.log.Warn("primary delivery endpoint failed, trying fallback",
		"to", email.To,
		"error", primaryErr.Error(),
	)

	messageID, fallbackErr := s.post(ctx, s.fallback, s.cfg.FallbackURL, body)
	if fallbackErr == nil {
		return messageID, types.RouteFallback, nil
	}

	return "", "", types.NewAppErrorWithDetails(types.ErrCodeDeliveryExhausted,
		"both delivery endpoints rejected the email", fallbackErr,
		map[string]any{
			"primaryError":  primaryErr.Error(),
			"fallbackError": fallbackErr.Error(),
		})
}

// post makes a single delivery attempt against one endpoint and parses the
// endpoint's receipt on success.
func (s *DeliverySender) post(ctx context.Context, client *BaseClient, url string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected,
			"failed to build delivery request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := s.cfg.AuthToken.Unmask(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", types.NewAppError(codeForEndpoint(url, s.cfg),
			fmt.Sprintf("delivery endpoint returned %d: %s", resp.StatusCode, string(snippet)), nil)
	}

	var receipt types.DeliveryReceipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		// A 2xx without a parseable receipt still counts as delivered; the
		// endpoint accepted the email.
		return "", nil
	}
	return receipt.MessageID, nil
}

func codeForEndpoint(url string, cfg config.DeliveryConfig) types.ErrorCode {
	if url == cfg.PrimaryURL {
		return types.ErrCodeDeliveryPrimary
	}
	return types.ErrCodeDeliveryFallback
}
