package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"edumatch/internal/types"
)

// fakeRows replays canned result rows through the pgx.Rows interface.
type fakeRows struct {
	rows [][]any
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx <= len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	for i, d := range dest {
		switch v := d.(type) {
		case *[]byte:
			*v = row[i].([]byte)
		case *string:
			*v = row[i].(string)
		case *int:
			*v = row[i].(int)
		default:
			return fmt.Errorf("unsupported scan target %T", d)
		}
	}
	return nil
}

// fakeDB records the SQL issued through the DBTX interface.
type fakeDB struct {
	execSQL   []string
	execArgs  [][]any
	execTags  []pgconn.CommandTag
	querySQL  []string
	queryArgs [][]any
	queryRows *fakeRows
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execSQL = append(db.execSQL, sql)
	db.execArgs = append(db.execArgs, args)
	if len(db.execTags) > 0 {
		tag := db.execTags[0]
		db.execTags = db.execTags[1:]
		return tag, nil
	}
	return pgconn.CommandTag{}, nil
}

func (db *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.querySQL = append(db.querySQL, sql)
	db.queryArgs = append(db.queryArgs, args)
	if db.queryRows != nil {
		return db.queryRows, nil
	}
	return &fakeRows{}, nil
}

func (db *fakeDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return &fakeRows{rows: [][]any{{}}}
}

func TestPGQueue_PublishDeduplicatesOnMessageID(t *testing.T) {
	db := &fakeDB{}
	q := NewPGQueue(db, "emails", "emails_dlq")

	msg := testMessage("pg-1", "ana@example.com")
	if err := q.Publish(context.Background(), msg); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(db.execSQL) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(db.execSQL))
	}
	if !strings.Contains(db.execSQL[0], "ON CONFLICT (queue, message_id) DO NOTHING") {
		t.Errorf("insert must suppress duplicate message IDs:\n%s", db.execSQL[0])
	}
	args := db.execArgs[0]
	if args[0] != "emails" || args[1] != "pg-1" || args[2] != "ana@example.com" {
		t.Errorf("unexpected insert args %v", args)
	}
}

func TestPGQueue_ReceiveLocksClaimedRows(t *testing.T) {
	body, err := json.Marshal(testMessage("pg-2", "ana@example.com"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	db := &fakeDB{queryRows: &fakeRows{rows: [][]any{{body, "receipt-1", 1}}}}
	q := NewPGQueue(db, "emails", "emails_dlq")

	batch, err := q.Receive(context.Background(), types.BatchSize)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}

	if len(db.querySQL) != 1 {
		t.Fatalf("expected 1 claim query, got %d", len(db.querySQL))
	}
	claim := db.querySQL[0]

	// Candidate rows must be locked so a concurrent Receive skips them
	// instead of claiming the same job twice, and the UPDATE must re-check
	// visibility after acquiring the lock.
	if !strings.Contains(claim, "FOR UPDATE SKIP LOCKED") {
		t.Errorf("claim query does not lock candidate rows:\n%s", claim)
	}
	if !strings.Contains(claim, "WHERE j.id = c.id AND j.visible_at <= now()") {
		t.Errorf("claim update does not re-check visibility:\n%s", claim)
	}

	// Redrive and retention sweeps run before the claim.
	if len(db.execSQL) != 2 {
		t.Fatalf("expected redrive + retention sweeps, got %d statements", len(db.execSQL))
	}

	if len(batch) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(batch))
	}
	got := batch[0]
	if got.Message.ID != "pg-2" || got.ReceiptHandle != "receipt-1" || got.ReceiveCount != 1 {
		t.Errorf("unexpected delivery %+v", got)
	}
}

func TestPGQueue_AcknowledgeExpiredReceipt(t *testing.T) {
	db := &fakeDB{execTags: []pgconn.CommandTag{pgconn.NewCommandTag("DELETE 0")}}
	q := NewPGQueue(db, "emails", "")

	err := q.Acknowledge(context.Background(), "stale-receipt")
	if err == nil {
		t.Fatal("expected error for an expired receipt")
	}

	db = &fakeDB{execTags: []pgconn.CommandTag{pgconn.NewCommandTag("DELETE 1")}}
	q = NewPGQueue(db, "emails", "")
	if err := q.Acknowledge(context.Background(), "live-receipt"); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
}
