// Package kafka streams audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"warden/internal/platform/kafka/producer"
	id "warden/pkg/domain"
	audit "warden/pkg/platform/audit"
)

// Producer is the subset of producer.Producer the store needs.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Store writes each event to a topic keyed by user id, then to an optional
// downstream store that also serves reads. Kafka is write-only from here.
type Store struct {
	producer Producer
	topic    string
	next     audit.Store
}

// New creates a Kafka-backed audit store. next may be nil.
func New(p Producer, topic string, next audit.Store) *Store {
	return &Store{producer: p, topic: topic, next: next}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	headers := map[string]string{"action": event.Action}
	if event.RequestID != "" {
		headers["request_id"] = event.RequestID
	}
	if err := s.producer.Produce(ctx, &producer.Message{
		Topic:   s.topic,
		Key:     []byte(event.UserID.String()),
		Value:   payload,
		Headers: headers,
	}); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	if s.next != nil {
		return s.next.Append(ctx, event)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	if s.next == nil {
		return []audit.Event{}, nil
	}
	return s.next.ListByUser(ctx, userID)
}
