package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/vigiapp/vigia/internal/domain"
)

// Publisher announces newly inserted incidents on a Kafka topic for the
// alerting subsystem. Publishing is best-effort: a broker outage never
// fails an ingestion run.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the incident events topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishIncidents serializes and publishes a batch of incidents in a
// single WriteMessages call.
func (p *Publisher) PublishIncidents(ctx context.Context, incidents []domain.Incident) error {
	if len(incidents) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(incidents))
	for i := range incidents {
		msg, err := serializeToMessage(incidents[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an incident into a Kafka message keyed by its
// deduplication identity, so consumers can dedupe on replay too.
func serializeToMessage(inc domain.Incident) (kafkago.Message, error) {
	data, err := json.Marshal(inc)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize incident: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(inc.Source + ":" + inc.SourceID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "incident_type", Value: []byte(inc.Type)},
			{Key: "occurred_at", Value: []byte(inc.OccurredAt.Format(time.RFC3339))},
		},
	}, nil
}
