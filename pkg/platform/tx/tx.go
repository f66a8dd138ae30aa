package tx

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

type ctxKey struct{}
type journalKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Journal collects compensating actions for stores that have no native
// transactions (in-memory, Redis). Runners call Rollback when the unit of
// work fails; undo funcs run in reverse registration order.
type Journal struct {
	mu    sync.Mutex
	undos []func(context.Context) error
}

// WithJournal attaches a fresh journal to ctx.
func WithJournal(ctx context.Context) (context.Context, *Journal) {
	j := &Journal{}
	return context.WithValue(ctx, journalKey{}, j), j
}

// OnRollback registers undo in the journal carried by ctx. Outside a journal
// it is a no-op and reports false.
func OnRollback(ctx context.Context, undo func(context.Context) error) bool {
	j, ok := ctx.Value(journalKey{}).(*Journal)
	if !ok {
		return false
	}
	j.mu.Lock()
	j.undos = append(j.undos, undo)
	j.mu.Unlock()
	return true
}

// Rollback runs every registered undo. The context passed in should not be
// the (possibly cancelled) request context.
func (j *Journal) Rollback(ctx context.Context) error {
	j.mu.Lock()
	undos := j.undos
	j.undos = nil
	j.mu.Unlock()

	var errs []error
	for i := len(undos) - 1; i >= 0; i-- {
		if err := undos[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Commit discards the registered undo funcs.
func (j *Journal) Commit() {
	j.mu.Lock()
	j.undos = nil
	j.mu.Unlock()
}
