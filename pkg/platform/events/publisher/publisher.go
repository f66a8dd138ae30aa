// Package publisher emits events to a sink.
//
// The default mode is synchronous and fail-closed: Emit returns only after
// the sink accepted the event, and a sink error is returned to the caller,
// which must abort its own operation. Callers that can tolerate loss may
// opt into an async buffered mode with WithAsyncBuffer.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"scanbo/pkg/platform/events"
)

var (
	ErrBufferFull   = errors.New("event buffer full")
	ErrClosed       = errors.New("publisher closed")
	ErrInvalidEvent = errors.New("invalid event")
)

type Publisher struct {
	sink    events.Sink
	logger  *slog.Logger
	metrics *Metrics

	buffer    chan events.Event
	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithAsyncBuffer switches to async mode with a buffer of size n.
// Emit then returns ErrBufferFull instead of blocking when the buffer is full.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.buffer = make(chan events.Event, n)
		}
	}
}

func NewPublisher(sink events.Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit validates the event, fills ID and Timestamp when unset, and hands it
// to the sink (sync) or the buffer (async).
func (p *Publisher) Emit(ctx context.Context, event events.Event) error {
	if event.Kind == "" || event.Subject == "" {
		return fmt.Errorf("%w: kind and subject are required", ErrInvalidEvent)
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	if p.buffer == nil {
		return p.write(ctx, event)
	}

	select {
	case p.buffer <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.metrics.incDropped()
		if p.logger != nil {
			p.logger.WarnContext(ctx, "event buffer full, dropping event",
				"kind", event.Kind,
				"subject", event.Subject,
			)
		}
		return ErrBufferFull
	}
}

func (p *Publisher) write(ctx context.Context, event events.Event) error {
	start := time.Now()
	if err := p.sink.Append(ctx, event); err != nil {
		p.metrics.incFailed()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "event delivery failed",
				"kind", event.Kind,
				"subject", event.Subject,
				"event_id", event.ID,
				"error", err,
			)
		}
		return fmt.Errorf("deliver %s event: %w", event.Kind, err)
	}
	p.metrics.observeEmitted(event.Kind, time.Since(start))
	return nil
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		// The request context is gone by now; async writes get their own.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = p.write(ctx, event)
		cancel()
	}
}

// Close stops accepting events and, in async mode, waits for the buffer to drain.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
	})
}
