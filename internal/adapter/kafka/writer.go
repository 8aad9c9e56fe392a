package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/david-j-lopez-m/RF/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces saved alert records to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer messageWriter
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the given topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, clock: clockwork.NewRealClock(), logger: logger}
}

// Publish serializes records and writes them in a single WriteMessages call.
// Each message is keyed by the record's unique key.
func (p *Publisher) Publish(ctx context.Context, source, keyField string, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	fetchedAt := p.clock.Now().UTC()
	msgs := make([]kafkago.Message, len(records))
	for i, rec := range records {
		msg, err := serializeToMessage(source, keyField, rec, fetchedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %s records: %w", source, err)
	}
	p.logger.Debug("records published", "source", source, "records", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a record into a Kafka message.
func serializeToMessage(source, keyField string, rec domain.Record, fetchedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s record: %w", source, err)
	}
	key, _ := rec.Key(keyField)
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(source)},
			{Key: "fetched_at", Value: []byte(fetchedAt.Format(time.RFC3339))},
		},
	}, nil
}
