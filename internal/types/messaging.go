package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// NotificationMessage is the JSON envelope carried by both pipeline queues.
// The same logical event flows through the Notifications queue and, after the
// relay stage, through the Emails queue. The relay preserves the envelope
// unchanged so the downstream queue deduplicates on the same ID.
//
// ID is the deduplication key: publishing the same ID twice to one queue
// within the dedup window results in a single delivery. UserEmail is the
// ordering group key: messages sharing it are delivered strictly in publish
// order, one in flight at a time.
type NotificationMessage struct {
	ID        string           `json:"id" validate:"required"`
	Kind      NotificationKind `json:"type" validate:"required"`
	UserID    string           `json:"userId" validate:"required"`
	UserEmail string           `json:"userEmail" validate:"required,email"`
	Metadata  json.RawMessage  `json:"metadata,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// EmailJob is the message type on the Emails queue. It is the same logical
// event forwarded by the relay stage; no transformation occurs there.
type EmailJob = NotificationMessage

// Validate checks the envelope invariants that both workers rely on.
// Kind membership is checked here rather than with a validator tag so the
// error names the offending value.
func (m *NotificationMessage) Validate() error {
	if err := validate.Struct(m); err != nil {
		return NewAppError(ErrCodeValidationEnvelope, "notification envelope failed validation", err)
	}
	if !m.Kind.IsValid() {
		return NewAppError(ErrCodeValidationUnknownKind,
			fmt.Sprintf("unrecognized notification type %q", m.Kind), nil)
	}
	return nil
}

// GroupKey returns the queue ordering group for this message.
func (m *NotificationMessage) GroupKey() string { return m.UserEmail }

// Queue-level message attribute names. These mirror envelope fields so
// infrastructure can route or filter without parsing the body.
const (
	AttrKind      = "Type"
	AttrUserEmail = "UserEmail"
)

// RenderedEmail is the output of a template render: a concrete subject and
// HTML body ready for the delivery endpoint.
type RenderedEmail struct {
	Subject string
	HTML    string
}

// OutboundEmail is the JSON body POSTed to a delivery endpoint.
type OutboundEmail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	From    string `json:"from"`
}

// DeliveryReceipt is the success response returned by a delivery endpoint.
type DeliveryReceipt struct {
	MessageID string `json:"messageId"`
}
