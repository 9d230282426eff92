package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"edumatch/internal/types"
)

// Delivery is one received message together with the receipt handle needed to
// acknowledge it.
type Delivery struct {
	Message       types.NotificationMessage
	ReceiptHandle string
	ReceiveCount  int
}

// MemoryQueue is an in-process implementation of the pipeline queue contract:
// ordered per group key, deduplicated by message ID, with visibility-timeout
// redelivery and receive-count redrive into a paired dead-letter queue.
//
// It backs local runs and the queue property tests; production deployments
// use SQS FIFO queues provisioned with the same policy values. All behavior
// is driven by the injected Clock so tests can advance time explicitly.
type MemoryQueue struct {
	mu sync.Mutex

	clock       types.Clock
	dlq         *MemoryQueue
	visibility  time.Duration
	retention   time.Duration
	maxReceive  int
	dedupWindow time.Duration

	seq      uint64
	items    []*queueItem
	dedup    map[string]time.Time
	inflight map[string]*queueItem
}

type queueItem struct {
	msg            types.NotificationMessage
	enqueuedAt     time.Time
	receiveCount   int
	inFlight       bool
	invisibleUntil time.Time
	receipt        string
}

// MemoryQueueOption configures a MemoryQueue.
type MemoryQueueOption func(*MemoryQueue)

// WithClock overrides the queue's time source. Intended for tests.
func WithClock(c types.Clock) MemoryQueueOption {
	return func(q *MemoryQueue) { q.clock = c }
}

// WithDLQ pairs the queue with a dead-letter queue for receive-count redrive.
// A queue without a DLQ (a DLQ itself) redelivers indefinitely until
// retention expiry.
func WithDLQ(dlq *MemoryQueue) MemoryQueueOption {
	return func(q *MemoryQueue) { q.dlq = dlq }
}

// NewMemoryQueue creates a queue with the pipeline's standard policy values
// (visibility 300s, retention 14d, maxReceiveCount 3, dedup window 5m).
func NewMemoryQueue(opts ...MemoryQueueOption) *MemoryQueue {
	q := &MemoryQueue{
		clock:       types.RealClock{},
		visibility:  types.VisibilityTimeoutSeconds * time.Second,
		retention:   types.RetentionSeconds * time.Second,
		maxReceive:  types.MaxReceiveCount,
		dedupWindow: types.DedupWindowSeconds * time.Second,
		dedup:       make(map[string]time.Time),
		inflight:    make(map[string]*queueItem),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Publish stores the message durably (for the in-memory case: until process
// exit). Publishing a message whose ID was already published within the dedup
// window is a no-op from the consumer's perspective: the first stored copy is
// the only one ever delivered.
func (q *MemoryQueue) Publish(ctx context.Context, msg types.NotificationMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock.Now()
	if publishedAt, seen := q.dedup[msg.ID]; seen && now.Sub(publishedAt) < q.dedupWindow {
		return nil
	}
	q.dedup[msg.ID] = now

	q.items = append(q.items, &queueItem{
		msg:        msg,
		enqueuedAt: now,
	})
	return nil
}

// Receive returns up to batchSize messages ready for processing, respecting
// group ordering: at most one message per group key is in flight at any time,
// and a group's next message is withheld until the previous one is
// acknowledged or its visibility timeout expires.
//
// Receiving increments a message's receive count and makes it invisible for
// the visibility timeout. A message whose receive count already reached the
// budget is moved to the paired DLQ instead of being delivered again.
func (q *MemoryQueue) Receive(ctx context.Context, batchSize int) ([]Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = types.BatchSize
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock.Now()
	q.reapLocked(now)

	busyGroups := make(map[string]bool)
	for _, it := range q.items {
		if it.inFlight {
			busyGroups[it.msg.GroupKey()] = true
		}
	}

	var batch []Delivery
	for _, it := range q.items {
		if len(batch) >= batchSize {
			break
		}
		group := it.msg.GroupKey()
		if it.inFlight || busyGroups[group] {
			// Preserve strict ordering: once a group has an in-flight or
			// batched message, its later messages are withheld.
			busyGroups[group] = true
			continue
		}

		it.receiveCount++
		it.inFlight = true
		it.invisibleUntil = now.Add(q.visibility)
		q.seq++
		it.receipt = fmt.Sprintf("rh-%d", q.seq)
		q.inflight[it.receipt] = it
		busyGroups[group] = true

		batch = append(batch, Delivery{
			Message:       it.msg,
			ReceiptHandle: it.receipt,
			ReceiveCount:  it.receiveCount,
		})
	}

	return batch, nil
}

// Acknowledge removes the message permanently. Acknowledging with a receipt
// that has already expired (the message became visible again) is an error:
// the message may have been redelivered in the meantime.
func (q *MemoryQueue) Acknowledge(ctx context.Context, receiptHandle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	it, ok := q.inflight[receiptHandle]
	if !ok || it.receipt != receiptHandle {
		return types.NewAppError(types.ErrCodeQueueUnavailable,
			fmt.Sprintf("receipt handle %s is no longer valid", receiptHandle), nil)
	}
	delete(q.inflight, receiptHandle)
	q.removeLocked(it)
	return nil
}

// Len returns the number of messages currently stored (visible or in
// flight).
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// reapLocked applies time-driven state transitions: visibility expiry,
// receive-budget redrive, and retention expiry. Caller holds q.mu.
func (q *MemoryQueue) reapLocked(now time.Time) {
	var kept []*queueItem
	for _, it := range q.items {
		// Retention: unacknowledged messages older than the retention period
		// are discarded, bounding growth from a permanently broken consumer.
		if now.Sub(it.enqueuedAt) >= q.retention {
			if it.inFlight {
				delete(q.inflight, it.receipt)
			}
			continue
		}

		// Visibility expiry makes an unacknowledged message eligible again.
		if it.inFlight && !it.invisibleUntil.After(now) {
			delete(q.inflight, it.receipt)
			it.inFlight = false
			it.receipt = ""
		}

		// Redrive: a visible message that exhausted its receive budget moves
		// to the DLQ instead of being delivered again.
		if !it.inFlight && it.receiveCount >= q.maxReceive {
			if q.dlq != nil {
				q.dlq.mu.Lock()
				q.dlq.dedup[it.msg.ID] = now
				q.dlq.items = append(q.dlq.items, &queueItem{
					msg:        it.msg,
					enqueuedAt: now,
				})
				q.dlq.mu.Unlock()
			}
			continue
		}

		kept = append(kept, it)
	}
	q.items = kept
}

// removeLocked deletes the item from the FIFO slice. Caller holds q.mu.
func (q *MemoryQueue) removeLocked(target *queueItem) {
	for i, it := range q.items {
		if it == target {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}
