// Package kafka publishes pool events to a Kafka topic with franz-go.
//
// Publishing is fail-open: the operation that produced the event has already
// committed, so delivery failures are logged and counted, never surfaced.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"givepool/internal/pool/events"
)

// Publisher produces one JSON record per event, keyed by principal id so all
// events for a beneficiary land in the same partition in order.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New connects to the brokers and ensures the topic exists.
func New(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resps, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, resp := range resps {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}

// Notify produces the event asynchronously. Delivery errors are logged.
func (p *Publisher) Notify(ctx context.Context, event events.Event) {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal pool event", "error", err, "event_id", event.ID)
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Principal.String()),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("kafka publish failed",
				"error", err,
				"event_id", event.ID,
				"kind", string(event.Kind),
			)
		}
	})
}

// Close flushes buffered records and releases the client.
func (p *Publisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.client.Close()
		return err
	}
	p.client.Close()
	return nil
}
