package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanbo/pkg/platform/circuit"
	"scanbo/pkg/platform/events"
)

type fakeSource struct {
	pending []events.Event
	calls   int
}

func (f *fakeSource) Dispatch(ctx context.Context, limit int, publish func(context.Context, []events.Event) error) (int, error) {
	f.calls++
	n := min(limit, len(f.pending))
	if n == 0 {
		return 0, nil
	}
	if err := publish(ctx, f.pending[:n]); err != nil {
		return 0, err
	}
	f.pending = f.pending[n:]
	return n, nil
}

type fakeSink struct {
	got []events.Event
	err error
}

func (f *fakeSink) AppendBatch(_ context.Context, batch []events.Event) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, batch...)
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestTickPublishesAndDrains(t *testing.T) {
	src := &fakeSource{pending: []events.Event{{Subject: "a"}, {Subject: "b"}, {Subject: "c"}}}
	sink := &fakeSink{}
	r := New(src, sink, discard(), WithBatchSize(2))

	n, err := r.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = r.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, sink.got, 3)
	assert.Empty(t, src.pending)
}

func TestTickKeepsRowsOnFailureAndOpensBreaker(t *testing.T) {
	src := &fakeSource{pending: []events.Event{{Subject: "a"}}}
	sink := &fakeSink{err: errors.New("broker unavailable")}
	breaker := circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(1<<62))
	r := New(src, sink, discard(), WithBreaker(breaker))

	_, err := r.Tick(context.Background())
	require.Error(t, err)
	_, err = r.Tick(context.Background())
	require.Error(t, err)
	assert.True(t, breaker.IsOpen())
	assert.Len(t, src.pending, 1)

	// open breaker within cooldown skips the source entirely
	n, err := r.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, src.calls)
}
