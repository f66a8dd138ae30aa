package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"scanbo/internal/hospital"
	hospitalmetrics "scanbo/internal/hospital/metrics"
	"scanbo/internal/hospital/service"
	hospitalstore "scanbo/internal/hospital/store"
	jwttoken "scanbo/internal/jwt_token"
	"scanbo/internal/platform/config"
	"scanbo/internal/platform/httpserver"
	"scanbo/internal/platform/kafka"
	"scanbo/internal/platform/logger"
	"scanbo/internal/platform/metrics"
	platformnats "scanbo/internal/platform/nats"
	"scanbo/internal/platform/postgres"
	"scanbo/internal/platform/redis"
	httptransport "scanbo/internal/transport/http"
	"scanbo/pkg/platform/events"
	eventskafka "scanbo/pkg/platform/events/kafka"
	eventsnats "scanbo/pkg/platform/events/nats"
	"scanbo/pkg/platform/events/publisher"
	"scanbo/pkg/platform/events/relay"
	eventsmemory "scanbo/pkg/platform/events/store/memory"
	outbox "scanbo/pkg/platform/events/store/postgres"
)

// brokerSink is what both the publisher and the outbox relay write to.
type brokerSink interface {
	events.Sink
	relay.BatchSink
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log := logger.New(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	broker, closeBroker, err := newBrokerSink(ctx, cfg.Events, log)
	if err != nil {
		return err
	}
	closers = append(closers, closeBroker)

	reg := metrics.NewRegistry()
	checks := map[string]httptransport.HealthCheck{}
	g, gctx := errgroup.WithContext(ctx)

	var (
		store     service.Store
		txRunner  service.TxRunner
		eventSink events.Sink = broker
	)
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		checks["postgres"] = db.PingContext

		// The hospital row and its outbox row commit in one transaction;
		// the relay forwards committed rows to the broker.
		ob := outbox.NewOutbox(db)
		store, txRunner, eventSink = hospitalstore.NewPostgres(db), service.NewPostgresTx(db), ob

		outboxRelay := relay.New(ob, broker, log,
			relay.WithInterval(cfg.Events.OutboxPollInterval),
			relay.WithBatchSize(cfg.Events.OutboxBatchSize),
		)
		g.Go(func() error {
			if err := outboxRelay.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = client.Close() })
		checks["redis"] = client.Health
		store = hospitalstore.NewRedis(client)
	default:
		store = hospitalstore.NewInMemory()
	}

	pub := publisher.NewPublisher(eventSink,
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(reg)),
	)
	closers = append(closers, pub.Close)

	opts := []service.Option{
		service.WithMaxLen(cfg.Registry.MaxStringLen),
		service.WithLogger(log),
		service.WithMetrics(hospitalmetrics.New(reg)),
	}
	if txRunner != nil {
		opts = append(opts, service.WithTxRunner(txRunner))
	}
	svc, err := hospital.NewService(store, service.NewEventNotifier(pub), opts...)
	if err != nil {
		return err
	}

	jwt := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, jwttoken.Audience)
	router := httptransport.NewRouter(httptransport.Config{
		Logger:       log,
		Registry:     reg,
		HealthChecks: checks,
	}, hospital.NewHandler(svc, jwt, log))

	srv := httpserver.New(cfg.Server.Addr, router)
	g.Go(func() error {
		log.Info("starting hospital registry",
			"addr", cfg.Server.Addr,
			"storage", cfg.Storage.Backend,
			"event_sink", cfg.Events.Sink,
			"max_string_len", cfg.Registry.MaxStringLen,
		)
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("hospital registry stopped")
	return nil
}

func newBrokerSink(ctx context.Context, cfg config.EventsConfig, log *slog.Logger) (brokerSink, func(), error) {
	switch cfg.Sink {
	case config.SinkKafka:
		client, err := kafka.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return eventskafka.NewSink(client, cfg.KafkaTopic), client.Close, nil
	case config.SinkNATS:
		nc, js, err := platformnats.Connect(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return eventsnats.NewSink(js, cfg.NATSSubjectPrefix), func() { _ = nc.Drain() }, nil
	default:
		log.Warn("events are kept in memory only; set EVENT_SINK for delivery")
		return eventsmemory.NewInMemoryStore(), func() {}, nil
	}
}
