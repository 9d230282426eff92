package types

import (
	"github.com/go-playground/validator/v10"
)

// Pipeline policy constants. These values are configured declaratively on the
// queues (see internal/queue) and mirrored here so consumers and tests agree
// on a single source of truth.
const (
	// BatchSize is the maximum number of messages delivered to one worker
	// invocation. Records within a batch belong to distinct ordering groups.
	BatchSize = 10

	// VisibilityTimeoutSeconds is how long a received-but-unacknowledged
	// message stays invisible before becoming eligible for redelivery.
	// Redelivery via visibility expiry is the only retry mechanism; workers
	// carry no retry loops.
	VisibilityTimeoutSeconds = 300

	// RetentionSeconds bounds unacknowledged queue growth: 14 days.
	RetentionSeconds = 14 * 24 * 60 * 60

	// MaxReceiveCount is the delivery-attempt budget before a message is
	// moved to the paired dead-letter queue by the redrive policy.
	MaxReceiveCount = 3

	// DedupWindowSeconds is the window within which a repeated message ID
	// collapses to a single delivery (SQS FIFO fixed window: 5 minutes).
	DedupWindowSeconds = 300
)

// validate is the shared validator instance for envelope and DTO structs.
// validator.Validate is safe for concurrent use and caches struct metadata,
// so a single instance serves the whole package.
var validate = validator.New()
