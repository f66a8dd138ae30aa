package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalRollbackRunsInReverse(t *testing.T) {
	ctx, j := WithJournal(context.Background())
	var order []int
	OnRollback(ctx, func(context.Context) error { order = append(order, 1); return nil })
	OnRollback(ctx, func(context.Context) error { order = append(order, 2); return nil })

	require.NoError(t, j.Rollback(context.Background()))
	assert.Equal(t, []int{2, 1}, order)
}

func TestJournalRollbackJoinsErrors(t *testing.T) {
	ctx, j := WithJournal(context.Background())
	boom := errors.New("boom")
	OnRollback(ctx, func(context.Context) error { return boom })
	OnRollback(ctx, func(context.Context) error { return nil })

	assert.ErrorIs(t, j.Rollback(context.Background()), boom)
}

func TestJournalCommitDiscardsUndos(t *testing.T) {
	ctx, j := WithJournal(context.Background())
	called := false
	OnRollback(ctx, func(context.Context) error { called = true; return nil })

	j.Commit()
	require.NoError(t, j.Rollback(context.Background()))
	assert.False(t, called)
}

func TestOnRollbackWithoutJournal(t *testing.T) {
	assert.False(t, OnRollback(context.Background(), func(context.Context) error { return nil }))
}

func TestFromWithoutTx(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)
	assert.Equal(t, context.Background(), WithTx(context.Background(), nil))
}
