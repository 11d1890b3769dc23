package kafka

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "mintgate/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the store needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Store writes audit events straight to a Kafka topic. Records are keyed by
// subject so every event about one principal or token lands on the same
// partition in order.
type Store struct {
	producer Producer
	topic    string
}

func New(producer Producer, topic string) *Store {
	return &Store{producer: producer, topic: topic}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New().String()
	body, err := audit.Encode(eventID, event)
	if err != nil {
		return err
	}
	rec := NewRecord(s.topic, eventID, event.Subject, event.Action, body)
	if err := s.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// NewRecord builds the Kafka record for an encoded event. Shared with the
// outbox relay so both paths emit identical records.
func NewRecord(topic, eventID, subject, action string, body []byte) *kgo.Record {
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(subject),
		Value: body,
		Headers: []kgo.RecordHeader{
			{Key: "event_id", Value: []byte(eventID)},
			{Key: "action", Value: []byte(action)},
			{Key: "category", Value: []byte(audit.AuditEvent(action).Category())},
		},
	}
}
