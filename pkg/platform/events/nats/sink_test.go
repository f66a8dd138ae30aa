package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanbo/pkg/platform/events"
)

type published struct {
	subject string
	payload []byte
}

type fakeJetStream struct {
	published []published
	failAt    int
}

func (f *fakeJetStream) Publish(_ context.Context, subject string, payload []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.failAt > 0 && len(f.published)+1 == f.failAt {
		return nil, errors.New("no responders")
	}
	f.published = append(f.published, published{subject: subject, payload: payload})
	return &jetstream.PubAck{Stream: "HOSPITALS", Sequence: uint64(len(f.published))}, nil
}

func newEvent(subject string) events.Event {
	return events.Event{
		ID:        uuid.New(),
		Kind:      events.KindHospitalRegistered,
		Subject:   subject,
		Timestamp: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestSinkAppend(t *testing.T) {
	js := &fakeJetStream{}
	sink := NewSink(js, "hospital.events")

	event := newEvent("alice")
	require.NoError(t, sink.Append(context.Background(), event))

	require.Len(t, js.published, 1)
	assert.Equal(t, "hospital.events.hospital_registered", js.published[0].subject)

	decoded, err := events.Unmarshal(js.published[0].payload)
	require.NoError(t, err)
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, "alice", decoded.Subject)
}

func TestSinkAppendBatchStopsAtFirstFailure(t *testing.T) {
	js := &fakeJetStream{failAt: 2}
	sink := NewSink(js, "hospital.events")

	err := sink.AppendBatch(context.Background(), []events.Event{newEvent("a"), newEvent("b"), newEvent("c")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no responders")
	assert.Len(t, js.published, 1)
}
