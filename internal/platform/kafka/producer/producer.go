// Package producer publishes records to Kafka with franz-go.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"warden/internal/platform/kafka"
)

// ErrClosed is returned by every call made after Close.
var ErrClosed = errors.New("kafka producer is closed")

const (
	linger       = 5 * time.Millisecond
	flushTimeout = 30 * time.Second
)

type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

type Producer struct {
	client *kgo.Client
	logger *slog.Logger
	closed atomic.Bool
}

// New connects lazily: no broker is contacted until the first produce or Check.
func New(cfg kafka.ProducerConfig, logger *slog.Logger) (*Producer, error) {
	if !cfg.Enabled() {
		return nil, errors.New("kafka brokers not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := kgo.NewClient(clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{client: client, logger: logger}, nil
}

func clientOptions(cfg kafka.ProducerConfig) []kgo.Opt {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RequiredAcks(requiredAcks(cfg.Acks)),
		kgo.RecordRetries(cfg.Retries),
		kgo.ProducerLinger(linger),
		kgo.AllowAutoTopicCreation(),
	}
	if !cfg.Idempotent() {
		opts = append(opts, kgo.DisableIdempotentWrite())
	}
	if cfg.DeliveryTimeout > 0 {
		opts = append(opts, kgo.RecordDeliveryTimeout(cfg.DeliveryTimeout))
	}
	return opts
}

func requiredAcks(a kafka.Acks) kgo.Acks {
	switch a {
	case kafka.AcksNone:
		return kgo.NoAck()
	case kafka.AcksLeader:
		return kgo.LeaderAck()
	default:
		return kgo.AllISRAcks()
	}
}

// Produce blocks until the broker acknowledges msg at the configured acks level.
func (p *Producer) Produce(ctx context.Context, msg *Message) error {
	if p.closed.Load() {
		return ErrClosed
	}
	rec := &kgo.Record{Topic: msg.Topic, Key: msg.Key, Value: msg.Value}
	for k, v := range msg.Headers {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", msg.Topic, err)
	}
	return nil
}

// Check is the "kafka" readiness probe: the cluster must report a broker.
func (p *Producer) Check(ctx context.Context) error {
	if p.closed.Load() {
		return ErrClosed
	}
	brokers, err := kadm.NewClient(p.client).ListBrokers(ctx)
	if err != nil {
		return fmt.Errorf("list kafka brokers: %w", err)
	}
	if len(brokers) == 0 {
		return errors.New("no kafka brokers available")
	}
	return nil
}

// Close flushes what is buffered, then closes the client. Repeated calls are no-ops.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("kafka producer closed with unflushed records", "error", err)
	}
	p.client.Close()
	return nil
}
