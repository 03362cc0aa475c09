// Package kafka publishes aggregated location summaries for downstream
// consumers that want the numbers without scraping the map artifact.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/incident-map-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces location summaries to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured summary topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishSummaries serializes and publishes all summaries in a single
// WriteMessages call.
func (p *Publisher) PublishSummaries(ctx context.Context, summaries []domain.LocationSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	generatedAt := time.Now().UTC()
	msgs := make([]kafkago.Message, len(summaries))
	for i := range summaries {
		msg, err := serializeToMessage(summaries[i], generatedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish location summaries: %w", err)
	}
	p.logger.Info("location summaries published", "topic", p.writer.Topic, "count", len(summaries))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a LocationSummary into a Kafka message keyed by
// postal code, so compacted topics retain the latest summary per location.
func serializeToMessage(s domain.LocationSummary, generatedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize location summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(s.PostalCode),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "category", Value: []byte(s.Category)},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
