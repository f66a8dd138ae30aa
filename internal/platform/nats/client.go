// Package nats connects to NATS and prepares the JetStream stream used by
// the event sink.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"scanbo/internal/platform/config"
	eventsnats "scanbo/pkg/platform/events/nats"
)

// Connect dials cfg.NATSURL and ensures the stream exists. The caller owns
// the returned connection and must Drain or Close it.
func Connect(ctx context.Context, cfg config.EventsConfig, logger *slog.Logger) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("scanbo-hospital-registry"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream: %w", err)
	}
	if err := eventsnats.EnsureStream(ctx, js, cfg.NATSStream, cfg.NATSSubjectPrefix); err != nil {
		nc.Close()
		return nil, nil, err
	}
	return nc, js, nil
}
