// Package nats delivers events to a NATS JetStream stream.
package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"scanbo/pkg/platform/events"
)

// Publisher is the subset of jetstream.JetStream the sink uses.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Sink publishes each event on <prefix>.<kind> and waits for the stream ack.
// The event id doubles as the JetStream message id, so a relay retry of the
// same outbox row is deduplicated by the server.
type Sink struct {
	js     Publisher
	prefix string
}

func NewSink(js Publisher, subjectPrefix string) *Sink {
	return &Sink{js: js, prefix: subjectPrefix}
}

// Subject returns the subject an event of kind is published on.
func (s *Sink) Subject(kind events.Kind) string {
	return s.prefix + "." + string(kind)
}

func (s *Sink) Append(ctx context.Context, event events.Event) error {
	data, err := events.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := s.Subject(event.Kind)
	if _, err := s.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.ID.String())); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// AppendBatch publishes in order and stops at the first failure. Already
// acknowledged messages are deduplicated if the batch is retried.
func (s *Sink) AppendBatch(ctx context.Context, batch []events.Event) error {
	for _, event := range batch {
		if err := s.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// EnsureStream creates the stream capturing <prefix>.> or updates it in place.
func EnsureStream(ctx context.Context, js jetstream.JetStream, name, subjectPrefix string) error {
	if name == "" || subjectPrefix == "" {
		return errors.New("stream name and subject prefix are required")
	}
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: []string{subjectPrefix + ".>"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", name, err)
	}
	return nil
}
