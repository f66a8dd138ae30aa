// Package events is the event-delivery collaborator: domain code builds an
// Event and hands it to a Publisher, which writes it to a Sink (memory,
// Kafka, or a Postgres outbox relayed to Kafka).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind names what happened. Consumers route on it.
type Kind string

const (
	KindHospitalRegistered Kind = "hospital_registered"
)

// Event is transport-agnostic so every sink can fan it out unchanged.
type Event struct {
	ID        uuid.UUID
	Kind      Kind
	Subject   string // account the event is about
	Timestamp time.Time
	RequestID string
	ClientIP  string
	UserAgent string // reduced "browser/os" form, never the raw header
}

// Sink persists or forwards events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// wirePayload is the JSON structure written to the outbox and Kafka.
type wirePayload struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Subject   string `json:"subject"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Marshal encodes an event for the wire.
func Marshal(e Event) ([]byte, error) {
	return json.Marshal(wirePayload{
		ID:        e.ID.String(),
		Kind:      string(e.Kind),
		Subject:   e.Subject,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		RequestID: e.RequestID,
		ClientIP:  e.ClientIP,
		UserAgent: e.UserAgent,
	})
}

// Unmarshal decodes an event produced by Marshal.
func Unmarshal(data []byte) (Event, error) {
	var p wirePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	eventID, err := uuid.Parse(p.ID)
	if err != nil {
		return Event{}, fmt.Errorf("decode event id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return Event{}, fmt.Errorf("decode event timestamp: %w", err)
	}
	return Event{
		ID:        eventID,
		Kind:      Kind(p.Kind),
		Subject:   p.Subject,
		Timestamp: ts,
		RequestID: p.RequestID,
		ClientIP:  p.ClientIP,
		UserAgent: p.UserAgent,
	}, nil
}
