//go:build integration

package containers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const redpandaImage = "redpandadata/redpanda:latest"

// KafkaContainer is a single Redpanda node speaking the Kafka protocol.
type KafkaContainer struct {
	Container testcontainers.Container
	Brokers   string
}

// NewKafkaContainer starts the broker. No cleanup is registered: the
// container outlives the test that started it and Ryuk removes it.
func NewKafkaContainer(t *testing.T) *KafkaContainer {
	t.Helper()
	ctx := context.Background()

	c, err := kafka.Run(ctx, redpandaImage, kafka.WithClusterID("warden-test"))
	if err != nil {
		t.Fatalf("start kafka container: %v", err)
	}
	brokers, err := c.Brokers(ctx)
	if err != nil || len(brokers) == 0 {
		_ = c.Terminate(ctx)
		t.Fatalf("resolve kafka brokers %v: %v", brokers, err)
	}
	return &KafkaContainer{Container: c, Brokers: brokers[0]}
}

func (k *KafkaContainer) client(opts ...kgo.Opt) (*kgo.Client, error) {
	return kgo.NewClient(append([]kgo.Opt{kgo.SeedBrokers(k.Brokers)}, opts...)...)
}

// CreateTopic is idempotent: an existing topic is not an error.
func (k *KafkaContainer) CreateTopic(ctx context.Context, topic string, partitions int32, replicas int16) error {
	cl, err := k.client()
	if err != nil {
		return err
	}
	defer cl.Close()

	res, err := kadm.NewClient(cl).CreateTopic(ctx, partitions, replicas, nil, topic)
	switch {
	case err != nil:
		return err
	case res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists):
		return res.Err
	}
	return nil
}

// NewConsumer joins groupID and reads topics from the beginning.
func (k *KafkaContainer) NewConsumer(_ context.Context, groupID string, topics ...string) (*kgo.Client, error) {
	return k.client(
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
	)
}

// WaitForMessage returns the first record for which match is true, or nil
// once timeout passes.
func (k *KafkaContainer) WaitForMessage(ctx context.Context, cl *kgo.Client, timeout time.Duration, match func(*kgo.Record) bool) *kgo.Record {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for ctx.Err() == nil {
		fetches := cl.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		for it := fetches.RecordIter(); !it.Done(); {
			if r := it.Next(); match(r) {
				return r
			}
		}
	}
	return nil
}
