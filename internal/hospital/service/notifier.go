package service

import (
	"context"

	"scanbo/internal/hospital/models"
	"scanbo/pkg/platform/events"
	"scanbo/pkg/platform/middleware/metadata"
	"scanbo/pkg/requestcontext"
)

// EventEmitter is satisfied by publisher.Publisher.
type EventEmitter interface {
	Emit(ctx context.Context, event events.Event) error
}

// EventNotifier turns HospitalRegistered into a platform event enriched with
// request metadata.
type EventNotifier struct {
	emitter EventEmitter
}

func NewEventNotifier(emitter EventEmitter) *EventNotifier {
	return &EventNotifier{emitter: emitter}
}

func (n *EventNotifier) Notify(ctx context.Context, event models.HospitalRegistered) error {
	return n.emitter.Emit(ctx, events.Event{
		Kind:      events.KindHospitalRegistered,
		Subject:   event.AccountID.String(),
		Timestamp: event.RegisteredAt,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: metadata.DescribeUserAgent(requestcontext.UserAgent(ctx)),
	})
}
