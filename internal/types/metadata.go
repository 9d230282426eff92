package types

import (
	"encoding/json"
	"fmt"
)

// Metadata is the typed payload attached to a notification. The concrete
// variant depends on the notification kind; each variant carries only the
// fields its email template consumes. Decoding is tolerant: absent fields
// stay zero-valued and templates degrade gracefully, extra fields are
// ignored.
type Metadata interface {
	// Kind returns the notification kind this variant belongs to.
	Kind() NotificationKind
}

// WelcomeMetadata accompanies WELCOME events.
type WelcomeMetadata struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (WelcomeMetadata) Kind() NotificationKind { return KindWelcome }

// ProfileCreatedMetadata accompanies PROFILE_CREATED events.
type ProfileCreatedMetadata struct {
	FirstName   string `json:"firstName"`
	ProfileType string `json:"profileType"`
}

func (ProfileCreatedMetadata) Kind() NotificationKind { return KindProfileCreated }

// PaymentDeadlineMetadata accompanies PAYMENT_DEADLINE events.
type PaymentDeadlineMetadata struct {
	PlanName     string  `json:"planName"`
	Currency     string  `json:"currency"`
	Amount       float64 `json:"amount"`
	DeadlineDate string  `json:"deadlineDate"`
}

func (PaymentDeadlineMetadata) Kind() NotificationKind { return KindPaymentDeadline }

// ApplicationStatusMetadata accompanies APPLICATION_STATUS_UPDATE events.
type ApplicationStatusMetadata struct {
	InstitutionName string `json:"institutionName"`
	ProgramName     string `json:"programName"`
	Status          string `json:"status"`
}

func (ApplicationStatusMetadata) Kind() NotificationKind { return KindApplicationStatusUpdate }

// PaymentResultMetadata accompanies PAYMENT_SUCCESS and PAYMENT_FAILED events.
type PaymentResultMetadata struct {
	PlanName  string  `json:"planName"`
	Currency  string  `json:"currency"`
	Amount    float64 `json:"amount"`
	InvoiceID string  `json:"invoiceId"`
	Reason    string  `json:"reason"`
}

func (PaymentResultMetadata) Kind() NotificationKind { return KindPaymentSuccess }

// SubscriptionExpiringMetadata accompanies SUBSCRIPTION_EXPIRING events.
type SubscriptionExpiringMetadata struct {
	PlanName   string `json:"planName"`
	ExpiryDate string `json:"expiryDate"`
}

func (SubscriptionExpiringMetadata) Kind() NotificationKind { return KindSubscriptionExpiring }

// PasswordChangedMetadata accompanies PASSWORD_CHANGED events.
type PasswordChangedMetadata struct {
	FirstName string `json:"firstName"`
	ChangedAt string `json:"changedAt"`
}

func (PasswordChangedMetadata) Kind() NotificationKind { return KindPasswordChanged }

// DecodeMetadata parses the raw metadata payload into the typed variant for
// the given kind. A nil or empty payload decodes to the zero-valued variant;
// templates treat zero values as "field not provided". Only an unrecognized
// kind is an error.
func DecodeMetadata(kind NotificationKind, raw json.RawMessage) (Metadata, error) {
	decode := func(dst Metadata) (Metadata, error) {
		if len(raw) == 0 {
			return dst, nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return nil, NewAppError(ErrCodeValidationEnvelope,
				fmt.Sprintf("metadata for %s is not valid JSON", kind), err)
		}
		return dst, nil
	}

	switch kind {
	case KindWelcome:
		return decode(&WelcomeMetadata{})
	case KindProfileCreated:
		return decode(&ProfileCreatedMetadata{})
	case KindPaymentDeadline:
		return decode(&PaymentDeadlineMetadata{})
	case KindApplicationStatusUpdate:
		return decode(&ApplicationStatusMetadata{})
	case KindPaymentSuccess, KindPaymentFailed:
		return decode(&PaymentResultMetadata{})
	case KindSubscriptionExpiring:
		return decode(&SubscriptionExpiringMetadata{})
	case KindPasswordChanged:
		return decode(&PasswordChangedMetadata{})
	default:
		return nil, NewAppError(ErrCodeValidationUnknownKind,
			fmt.Sprintf("no metadata variant for notification type %q", kind), nil)
	}
}
