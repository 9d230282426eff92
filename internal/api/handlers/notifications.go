// Package handlers contains the HTTP handler implementations for the producer
// edge of the notification pipeline.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"edumatch/internal/api"
	"edumatch/internal/types"
)

// PublishNotificationRequest is the producer-facing DTO for enqueueing a
// notification. The envelope ID is optional: producers that need end-to-end
// idempotency supply their own, everyone else gets a generated UUID.
type PublishNotificationRequest struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	UserID    string          `json:"userId"`
	UserEmail string          `json:"userEmail"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// PublishNotificationResponse acknowledges an accepted notification.
type PublishNotificationResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// NotificationHandler maps HTTP requests onto the notifications queue.
type NotificationHandler struct {
	publisher types.QueuePublisher
	queueURL  string
	clock     types.Clock
	logger    types.Logger
}

// NewNotificationHandler creates a handler publishing to the given
// notifications queue URL.
func NewNotificationHandler(publisher types.QueuePublisher, queueURL string, clock types.Clock, logger types.Logger) *NotificationHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &NotificationHandler{
		publisher: publisher,
		queueURL:  queueURL,
		clock:     clock,
		logger:    logger,
	}
}

// RegisterRoutes mounts the notification endpoints onto the mux.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandlePublish)
}

// HandlePublish handles POST /v1/notifications.
//
// Flow:
//  1. Decode and validate the request body.
//  2. Assemble the queue envelope: generated ID if absent, server timestamp.
//  3. Publish to the notifications queue.
//  4. Return 202 Accepted. The email is delivered asynchronously; acceptance
//     only means the envelope is durably queued.
func (h *NotificationHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	var req PublishNotificationRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	msg := types.NotificationMessage{
		ID:        req.ID,
		Kind:      types.NotificationKind(req.Type),
		UserID:    req.UserID,
		UserEmail: req.UserEmail,
		Metadata:  req.Metadata,
		Timestamp: h.clock.Now(),
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	if err := msg.Validate(); err != nil {
		api.Error(w, r, err)
		return
	}

	if err := h.publisher.Publish(r.Context(), h.queueURL, msg); err != nil {
		h.logger.Error("failed to enqueue notification",
			"notification_id", msg.ID,
			"notification_type", string(msg.Kind),
			"error", err.Error(),
		)
		api.Error(w, r, err)
		return
	}

	h.logger.Info("notification enqueued",
		"notification_id", msg.ID,
		"notification_type", string(msg.Kind),
		"user_id", msg.UserID,
	)

	api.JSON(w, r, http.StatusAccepted, api.APIResponse{
		Data: PublishNotificationResponse{ID: msg.ID, Status: "queued"},
	})
}
