package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	id "scanbo/pkg/domain"
	dErrors "scanbo/pkg/domain-errors"
	txcontext "scanbo/pkg/platform/tx"
)

// Operations on different accounts rarely contend, so locks are sharded by a
// hash of the account id rather than held globally.
const numShards = 128

const defaultTxTimeout = 5 * time.Second

type txAccountKey struct{}

func withTxAccount(ctx context.Context, accountID id.AccountID) context.Context {
	return context.WithValue(ctx, txAccountKey{}, accountID)
}

// ShardedTx serializes units of work per account and undoes their store
// effects through a rollback journal when they fail. It backs stores without
// native transactions (in-memory, Redis).
//
// The lock only covers this process; a shared Redis relies on SETNX for
// cross-process exclusion.
type ShardedTx struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

func NewShardedTx() *ShardedTx {
	return &ShardedTx{timeout: defaultTxTimeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	ctx, cancel := withDefaultTimeout(ctx, t.timeout)
	defer cancel()

	shard := t.selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	ctx, journal := txcontext.WithJournal(ctx)
	if err := fn(ctx); err != nil {
		// Undo must run even when the request context is gone.
		if rbErr := journal.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return errors.Join(err, dErrors.Wrap(rbErr, dErrors.CodeInternal, "rollback failed"))
		}
		return err
	}
	journal.Commit()
	return nil
}

// selectShard picks a shard from the account in context, or shard 0.
func (t *ShardedTx) selectShard(ctx context.Context) int {
	if accountID, ok := ctx.Value(txAccountKey{}).(id.AccountID); ok && accountID != "" {
		return int(hashString(string(accountID)) % numShards)
	}
	return 0
}

// hashString is 32-bit FNV-1a.
func hashString(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

// PostgresTx runs units of work in a database transaction carried in ctx, so
// the hospital insert and the outbox row commit together.
type PostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db, timeout: defaultTxTimeout}
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	ctx, cancel := withDefaultTimeout(ctx, t.timeout)
	defer cancel()

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to begin transaction")
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, sqlTx)); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit transaction")
	}
	return nil
}

func withDefaultTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
