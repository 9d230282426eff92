package types

// NotificationKind identifies the business event a notification describes.
// The kind selects the email template in the Email Worker and is mirrored
// into the queue-level Type message attribute for routing and filtering.
type NotificationKind string

const (
	KindWelcome                 NotificationKind = "WELCOME"
	KindProfileCreated          NotificationKind = "PROFILE_CREATED"
	KindPaymentDeadline         NotificationKind = "PAYMENT_DEADLINE"
	KindApplicationStatusUpdate NotificationKind = "APPLICATION_STATUS_UPDATE"
	KindPaymentSuccess          NotificationKind = "PAYMENT_SUCCESS"
	KindPaymentFailed           NotificationKind = "PAYMENT_FAILED"
	KindSubscriptionExpiring    NotificationKind = "SUBSCRIPTION_EXPIRING"
	KindPasswordChanged         NotificationKind = "PASSWORD_CHANGED"
)

// AllKinds lists every recognized NotificationKind. Used by envelope
// validation and by the template registry completeness check.
func AllKinds() []NotificationKind {
	return []NotificationKind{
		KindWelcome,
		KindProfileCreated,
		KindPaymentDeadline,
		KindApplicationStatusUpdate,
		KindPaymentSuccess,
		KindPaymentFailed,
		KindSubscriptionExpiring,
		KindPasswordChanged,
	}
}

// IsValid reports whether k is one of the recognized notification kinds.
func (k NotificationKind) IsValid() bool {
	switch k {
	case KindWelcome, KindProfileCreated, KindPaymentDeadline,
		KindApplicationStatusUpdate, KindPaymentSuccess, KindPaymentFailed,
		KindSubscriptionExpiring, KindPasswordChanged:
		return true
	default:
		return false
	}
}

// RelayResult categorizes the outcome of a Notification Worker record.
type RelayResult string

const (
	RelayForwarded RelayResult = "forwarded"
	RelayRejected  RelayResult = "rejected"
)

// DeliveryResult categorizes the outcome of an Email Worker record.
type DeliveryResult string

const (
	DeliverySent    DeliveryResult = "sent"
	DeliverySkipped DeliveryResult = "skipped"
	DeliveryFailed  DeliveryResult = "failed"
)

// DeliveryRoute identifies which endpoint accepted an email.
type DeliveryRoute string

const (
	RoutePrimary  DeliveryRoute = "primary"
	RouteFallback DeliveryRoute = "fallback"
)
