package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"scanbo/pkg/platform/events"
	txcontext "scanbo/pkg/platform/tx"
)

// Outbox implements events.Sink with the transactional outbox pattern.
// Append writes into the caller's transaction (when one is in the context) so
// the event commits or rolls back together with the domain write; the relay
// later publishes committed rows to Kafka.
type Outbox struct {
	db *sql.DB
}

// Entry is one unpublished outbox row.
type Entry struct {
	ID    uuid.UUID
	Event events.Event
}

func NewOutbox(db *sql.DB) *Outbox {
	return &Outbox{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (o *Outbox) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return o.db
}

// Append inserts the event into the outbox table.
func (o *Outbox) Append(ctx context.Context, event events.Event) error {
	payload, err := events.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = o.execer(ctx).ExecContext(ctx, query,
		event.ID,
		"hospital",
		event.Subject,
		string(event.Kind),
		payload,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// Dispatch locks up to limit unpublished rows, hands them to publish, and
// marks them published when publish succeeds. Rows stay pending otherwise.
// SKIP LOCKED lets several relays run side by side without double sends.
func (o *Outbox) Dispatch(ctx context.Context, limit int, publish func(ctx context.Context, batch []events.Event) error) (int, error) {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return 0, fmt.Errorf("select outbox entries: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	batch := make([]events.Event, 0, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		batch = append(batch, e.Event)
		ids = append(ids, e.ID)
	}
	if err := publish(ctx, batch); err != nil {
		return 0, err
	}

	for _, entryID := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE outbox SET published_at = $2 WHERE id = $1`, entryID, time.Now().UTC()); err != nil {
			return 0, fmt.Errorf("mark outbox entry published: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox tx: %w", err)
	}
	return len(entries), nil
}

// Pending counts unpublished rows.
func (o *Outbox) Pending(ctx context.Context) (int, error) {
	var n int
	if err := o.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending outbox entries: %w", err)
	}
	return n, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var (
			entryID uuid.UUID
			payload []byte
		)
		if err := rows.Scan(&entryID, &payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		event, err := events.Unmarshal(payload)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{ID: entryID, Event: event})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}
