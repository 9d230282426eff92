package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"edumatch/internal/types"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
// PGQueue accepts this so the same code works inside or outside a
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGQueue is a Postgres-backed implementation of the pipeline queue contract
// for deployments without a managed queue service. Jobs live in a single
// table with a visibility-timeout column; redrive into the paired DLQ queue
// name happens at receive time, mirroring the SQS redrive policy.
//
// Deduplication differs from SQS in one respect: the unique (queue,
// message_id) constraint suppresses duplicates for the lifetime of the row
// rather than for a fixed window. That is a strictly stronger guarantee, so
// the pipeline's dedup property still holds.
type PGQueue struct {
	db      DBTX
	queue   string
	dlqName string
}

// NewPGQueue creates a PGQueue reading from the named logical queue.
// dlqName may be empty for queues without redrive (DLQs themselves).
func NewPGQueue(db DBTX, queue, dlqName string) *PGQueue {
	return &PGQueue{db: db, queue: queue, dlqName: dlqName}
}

// Schema is the DDL for the job table. Applied by cmd/ops/provision when a
// DATABASE_URL is configured.
const Schema = `
CREATE TABLE IF NOT EXISTS notification_jobs (
    id            BIGSERIAL PRIMARY KEY,
    queue         TEXT        NOT NULL,
    message_id    TEXT        NOT NULL,
    group_key     TEXT        NOT NULL,
    body          JSONB       NOT NULL,
    receive_count INT         NOT NULL DEFAULT 0,
    visible_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    enqueued_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    receipt       TEXT,
    UNIQUE (queue, message_id)
);
CREATE INDEX IF NOT EXISTS idx_notification_jobs_claim
    ON notification_jobs (queue, visible_at, group_key);
`

// Publish inserts the message. A duplicate message ID for the same queue is
// silently ignored; only the first stored copy is ever delivered.
func (q *PGQueue) Publish(ctx context.Context, msg types.NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return types.NewAppError(types.ErrCodeQueuePublish,
			"failed to marshal notification envelope", err)
	}

	_, err = q.db.Exec(ctx, `
		INSERT INTO notification_jobs (queue, message_id, group_key, body)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (queue, message_id) DO NOTHING`,
		q.queue, msg.ID, msg.GroupKey(), body)
	if err != nil {
		return types.NewAppError(types.ErrCodeQueuePublish,
			fmt.Sprintf("failed to insert job into %s", q.queue), err)
	}
	return nil
}

// Receive claims up to batchSize jobs, honoring group exclusivity: a group
// with an invisible (in-flight) job yields nothing until that job is
// acknowledged or its visibility expires. Claiming bumps the receive count
// and pushes visible_at forward by the visibility timeout.
//
// Candidate rows are locked with FOR UPDATE SKIP LOCKED so two concurrent
// Receive calls never claim the same job, and the UPDATE re-checks
// visible_at so a row claimed between snapshot and lock is not handed out
// twice.
func (q *PGQueue) Receive(ctx context.Context, batchSize int) ([]Delivery, error) {
	if batchSize <= 0 {
		batchSize = types.BatchSize
	}

	if err := q.redrive(ctx); err != nil {
		return nil, err
	}

	rows, err := q.db.Query(ctx, `
		WITH heads AS (
		    SELECT DISTINCT ON (group_key) id, group_key
		    FROM notification_jobs
		    WHERE queue = $1 AND visible_at <= now()
		    ORDER BY group_key, id
		), idle AS (
		    SELECT h.id
		    FROM heads h
		    WHERE NOT EXISTS (
		        SELECT 1 FROM notification_jobs b
		        WHERE b.queue = $1
		          AND b.group_key = h.group_key
		          AND b.visible_at > now()
		    )
		), claimable AS (
		    SELECT j.id
		    FROM notification_jobs j
		    WHERE j.id IN (SELECT id FROM idle)
		    ORDER BY j.id
		    LIMIT $2
		    FOR UPDATE SKIP LOCKED
		)
		UPDATE notification_jobs j
		SET receive_count = j.receive_count + 1,
		    visible_at    = now() + make_interval(secs => $3),
		    receipt       = gen_random_uuid()::text
		FROM claimable c
		WHERE j.id = c.id AND j.visible_at <= now()
		RETURNING j.body, j.receipt, j.receive_count`,
		q.queue, batchSize, types.VisibilityTimeoutSeconds)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeQueueUnavailable,
			fmt.Sprintf("failed to claim jobs from %s", q.queue), err)
	}
	defer rows.Close()

	var batch []Delivery
	for rows.Next() {
		var (
			body         []byte
			receipt      string
			receiveCount int
		)
		if err := rows.Scan(&body, &receipt, &receiveCount); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan claimed job", err)
		}
		var msg types.NotificationMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "stored job body is not a valid envelope", err)
		}
		batch = append(batch, Delivery{
			Message:       msg,
			ReceiptHandle: receipt,
			ReceiveCount:  receiveCount,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeQueueUnavailable,
			fmt.Sprintf("failed to read claimed jobs from %s", q.queue), err)
	}

	return batch, nil
}

// Acknowledge deletes the job. A receipt whose visibility already expired no
// longer matches (the job became claimable again), which surfaces as an
// error so callers know the message may have been redelivered.
func (q *PGQueue) Acknowledge(ctx context.Context, receiptHandle string) error {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM notification_jobs
		WHERE queue = $1 AND receipt = $2 AND visible_at > now()`,
		q.queue, receiptHandle)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB,
			fmt.Sprintf("failed to acknowledge job in %s", q.queue), err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeQueueUnavailable,
			fmt.Sprintf("receipt handle %s is no longer valid", receiptHandle), nil)
	}
	return nil
}

// redrive applies the declarative failure policy before each claim pass:
// jobs past their receive budget move to the DLQ queue name, and jobs past
// retention are discarded.
func (q *PGQueue) redrive(ctx context.Context) error {
	if q.dlqName != "" {
		_, err := q.db.Exec(ctx, `
			WITH moved AS (
			    DELETE FROM notification_jobs
			    WHERE queue = $1 AND visible_at <= now() AND receive_count >= $2
			    RETURNING message_id, group_key, body
			)
			INSERT INTO notification_jobs (queue, message_id, group_key, body)
			SELECT $3, message_id, group_key, body FROM moved
			ON CONFLICT (queue, message_id) DO NOTHING`,
			q.queue, types.MaxReceiveCount, q.dlqName)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalDB,
				fmt.Sprintf("failed to redrive jobs from %s to %s", q.queue, q.dlqName), err)
		}
	}

	_, err := q.db.Exec(ctx, `
		DELETE FROM notification_jobs
		WHERE queue = $1 AND enqueued_at < now() - make_interval(secs => $2)`,
		q.queue, types.RetentionSeconds)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB,
			fmt.Sprintf("failed to expire jobs in %s", q.queue), err)
	}
	return nil
}
