//go:build integration

package producer_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"warden/internal/platform/kafka"
	"warden/internal/platform/kafka/producer"
	id "warden/pkg/domain"
	"warden/pkg/platform/audit"
	auditkafka "warden/pkg/platform/audit/store/kafka"
	auditmemory "warden/pkg/platform/audit/store/memory"
	"warden/pkg/testutil/containers"
)

type ProducerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestProducerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerIntegrationSuite))
}

func (s *ProducerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())

	cfg := kafka.DefaultProducerConfig()
	cfg.Brokers = []string{s.kafka.Brokers}
	cfg.DeliveryTimeout = 10 * time.Second
	prod, err := producer.New(cfg, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ProducerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		_ = s.producer.Close()
	}
}

func (s *ProducerIntegrationSuite) consume(ctx context.Context, group, topic, key string) *kgo.Record {
	consumer, err := s.kafka.NewConsumer(ctx, group, topic)
	s.Require().NoError(err)
	defer consumer.Close()

	return s.kafka.WaitForMessage(ctx, consumer, 5*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == key
	})
}

// Produce only returns after the broker acknowledged the record.
func (s *ProducerIntegrationSuite) TestProduceDeliversWithHeaders() {
	ctx := context.Background()
	topic := "warden-produce-sync"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))

	s.Require().NoError(s.producer.Produce(ctx, &producer.Message{
		Topic:   topic,
		Key:     []byte("k1"),
		Value:   []byte("v1"),
		Headers: map[string]string{"action": "login_succeeded"},
	}))

	record := s.consume(ctx, "warden-produce-sync-group", topic, "k1")
	s.Require().NotNil(record, "message should be consumable")
	s.Equal("v1", string(record.Value))
	s.Require().Len(record.Headers, 1)
	s.Equal("action", record.Headers[0].Key)
	s.Equal("login_succeeded", string(record.Headers[0].Value))
}

func (s *ProducerIntegrationSuite) TestAuditStorePublishesAndForwards() {
	ctx := context.Background()
	topic := "warden-audit-" + time.Now().Format("20060102150405")
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))

	next := auditmemory.NewInMemoryStore()
	store := auditkafka.New(s.producer, topic, next)
	userID := id.NewUserID()
	event := audit.Event{
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Action:    string(audit.EventAccessDenied),
		Decision:  "denied",
		Reason:    "user_does_not_have_required_role",
		RequestID: "req-1",
	}
	s.Require().NoError(store.Append(ctx, event))

	record := s.consume(ctx, "warden-audit-group", topic, userID.String())
	s.Require().NotNil(record, "audit event should be on the topic")

	var got audit.Event
	s.Require().NoError(json.Unmarshal(record.Value, &got))
	s.Equal(event.Action, got.Action)
	s.Equal(event.Reason, got.Reason)

	headers := map[string]string{}
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal("req-1", headers["request_id"])

	stored, err := store.ListByUser(ctx, userID)
	s.Require().NoError(err)
	s.Len(stored, 1)
}

func (s *ProducerIntegrationSuite) TestCheckSeesBroker() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.NoError(s.producer.Check(ctx))
}

func (s *ProducerIntegrationSuite) TestCheckFailsAfterClose() {
	cfg := kafka.DefaultProducerConfig()
	cfg.Brokers = []string{s.kafka.Brokers}
	p, err := producer.New(cfg, nil)
	s.Require().NoError(err)
	s.Require().NoError(p.Close())

	s.Error(p.Check(context.Background()))
	s.Error(p.Produce(context.Background(), &producer.Message{Topic: "unused"}))
}
