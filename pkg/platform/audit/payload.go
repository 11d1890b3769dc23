package audit

import (
	"encoding/json"
	"fmt"
	"time"

	id "mintgate/pkg/domain"
)

// payload is the wire form shared by the outbox table and the Kafka topic.
type payload struct {
	ID         string            `json:"id"`
	Category   string            `json:"category"`
	Timestamp  string            `json:"timestamp"`
	Actor      string            `json:"actor,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	Action     string            `json:"action"`
	Reason     string            `json:"reason,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Encode serializes an event for durable sinks. The category is always
// derived from the action.
func Encode(eventID string, event Event) ([]byte, error) {
	b, err := json.Marshal(payload{
		ID:         eventID,
		Category:   string(AuditEvent(event.Action).Category()),
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339Nano),
		Actor:      event.Actor.String(),
		Subject:    event.Subject,
		Action:     event.Action,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
		Attributes: event.Attributes,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}
	return b, nil
}

// Decode is the inverse of Encode and also returns the event id.
func Decode(data []byte) (string, Event, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", Event{}, fmt.Errorf("unmarshal audit payload: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return "", Event{}, fmt.Errorf("parse audit timestamp: %w", err)
	}
	return p.ID, Event{
		Category:   EventCategory(p.Category),
		Timestamp:  ts,
		Actor:      id.Principal(p.Actor),
		Subject:    p.Subject,
		Action:     p.Action,
		Reason:     p.Reason,
		RequestID:  p.RequestID,
		Attributes: p.Attributes,
	}, nil
}
