package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanbo/pkg/platform/events"
	"scanbo/pkg/platform/events/store/memory"
)

func hospitalEvent(subject string) events.Event {
	return events.Event{Kind: events.KindHospitalRegistered, Subject: subject}
}

type failingSink struct{ err error }

func (f failingSink) Append(context.Context, events.Event) error { return f.err }

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	require.NoError(t, pub.Emit(context.Background(), hospitalEvent("alice")))

	got, err := store.ListBySubject(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, events.KindHospitalRegistered, got[0].Kind)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", got[0].ID.String())
}

func TestPublisher_SyncModeFailsClosed(t *testing.T) {
	boom := errors.New("broker down")
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	pub := NewPublisher(failingSink{err: boom}, WithMetrics(m))
	defer pub.Close()

	err := pub.Emit(context.Background(), hospitalEvent("alice"))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Failed))
}

func TestPublisher_RejectsIncompleteEvents(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore())
	defer pub.Close()

	err := pub.Emit(context.Background(), events.Event{Kind: events.KindHospitalRegistered})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	err = pub.Emit(context.Background(), events.Event{Subject: "alice"})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), hospitalEvent("alice")))
	}
	pub.Close()

	got, err := store.ListBySubject(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, got, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), hospitalEvent("alice"))
			if err != nil {
				assert.ErrorIs(t, err, ErrBufferFull)
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()

	assert.ErrorIs(t, pub.Emit(context.Background(), hospitalEvent("alice")), ErrClosed)
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	before := time.Now()
	require.NoError(t, pub.Emit(context.Background(), hospitalEvent("alice")))
	after := time.Now()

	got, err := store.ListBySubject(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Timestamp.Before(before))
	assert.False(t, got[0].Timestamp.After(after))
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	event := hospitalEvent("alice")
	event.Timestamp = custom
	require.NoError(t, pub.Emit(context.Background(), event))

	got, err := store.ListBySubject(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, custom, got[0].Timestamp)
}
