// Package kafka builds the franz-go client used by the event sink.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"scanbo/internal/platform/config"
	eventskafka "scanbo/pkg/platform/events/kafka"
)

// NewClient connects to the brokers, makes sure the topic exists and returns
// a producer ready for the sink.
func NewClient(ctx context.Context, cfg config.EventsConfig) (*kgo.Client, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.KafkaBrokers...),
		kgo.DefaultProduceTopic(cfg.KafkaTopic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordRetries(5),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping kafka: %w", err)
	}
	if err := eventskafka.EnsureTopic(ctx, client, cfg.KafkaTopic, 3, 1); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
