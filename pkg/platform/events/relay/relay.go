// Package relay moves committed outbox rows to the broker.
package relay

import (
	"context"
	"log/slog"
	"time"

	"scanbo/pkg/platform/circuit"
	"scanbo/pkg/platform/events"
)

// Source hands out pending events and marks them published when publish succeeds.
type Source interface {
	Dispatch(ctx context.Context, limit int, publish func(ctx context.Context, batch []events.Event) error) (int, error)
}

// BatchSink publishes a batch in one round trip.
type BatchSink interface {
	AppendBatch(ctx context.Context, batch []events.Event) error
}

// Relay polls Source on an interval and forwards batches to Sink. While the
// broker keeps failing the breaker opens and polls are skipped until the
// cooldown passes; rows stay in the outbox meanwhile.
type Relay struct {
	source    Source
	sink      BatchSink
	breaker   *circuit.Breaker
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Relay) {
		r.breaker = b
	}
}

func New(source Source, sink BatchSink, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		source:    source,
		sink:      sink,
		logger:    logger,
		interval:  time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = circuit.New("outbox-relay", circuit.WithFailureThreshold(3), circuit.WithCooldown(30*time.Second))
	}
	return r
}

// Run polls until ctx is cancelled. It returns ctx.Err().
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := r.Tick(ctx)
				if err != nil || n < r.batchSize {
					break
				}
			}
		}
	}
}

// Tick performs one dispatch round and reports how many events were sent.
func (r *Relay) Tick(ctx context.Context) (int, error) {
	if !r.breaker.Allow() {
		return 0, nil
	}
	n, err := r.source.Dispatch(ctx, r.batchSize, r.sink.AppendBatch)
	if err != nil {
		if _, change := r.breaker.RecordFailure(); change.Opened {
			r.logger.ErrorContext(ctx, "outbox relay circuit opened", "breaker", r.breaker.Name(), "error", err)
		} else {
			r.logger.WarnContext(ctx, "outbox relay dispatch failed", "error", err)
		}
		return 0, err
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "outbox relay circuit closed", "breaker", r.breaker.Name())
	}
	if n > 0 {
		r.logger.DebugContext(ctx, "outbox relay published events", "count", n)
	}
	return n, nil
}
