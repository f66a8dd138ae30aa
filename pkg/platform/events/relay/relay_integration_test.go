//go:build integration

package relay_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"scanbo/pkg/platform/events"
	"scanbo/pkg/platform/events/kafka"
	"scanbo/pkg/platform/events/relay"
	"scanbo/pkg/platform/events/store/postgres"
	"scanbo/pkg/testutil/containers"
)

// TestRelayMovesOutboxToKafka runs one relay tick from a real outbox to a
// real broker.
func TestRelayMovesOutboxToKafka(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	mgr := containers.GetManager()
	pg := mgr.GetPostgres(t)
	rp := mgr.GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, pg.TruncateTables(ctx, "outbox"))

	topic := "hospital-relay-" + uuid.NewString()
	producer := rp.NewClient(t)
	require.NoError(t, kafka.EnsureTopic(ctx, producer, topic, 1, 1))

	ob := postgres.NewOutbox(pg.DB)
	require.NoError(t, ob.Append(ctx, events.Event{
		ID:        uuid.New(),
		Kind:      events.KindHospitalRegistered,
		Subject:   "alice",
		Timestamp: time.Now().UTC(),
	}))

	r := relay.New(ob, kafka.NewSink(producer, topic), slog.New(slog.NewTextHandler(io.Discard, nil)))
	n, err := r.Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	pending, err := ob.Pending(ctx)
	require.NoError(t, err)
	require.Zero(t, pending)

	consumer := rp.NewClient(t, kgo.ConsumeTopics(topic), kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	require.Len(t, fetches.Records(), 1)
}
