package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"warden/internal/platform/config"
)

func TestFromConfig(t *testing.T) {
	t.Run("Given no brokers When built Then the sink is disabled", func(t *testing.T) {
		cfg := FromConfig(config.KafkaConfig{})
		assert.False(t, cfg.Enabled())
		assert.Equal(t, "warden.audit", cfg.AuditTopic)
	})

	t.Run("Given a broker list When built Then it is split and deduped", func(t *testing.T) {
		cfg := FromConfig(config.KafkaConfig{Brokers: "k1:9092, k2:9092,,k1:9092", AuditTopic: "audit.v2"})
		assert.True(t, cfg.Enabled())
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
		assert.Equal(t, "audit.v2", cfg.AuditTopic)
		assert.Equal(t, AcksAll, cfg.Acks)
	})
}

func TestIdempotent(t *testing.T) {
	for acks, want := range map[Acks]bool{AcksAll: true, "": true, AcksLeader: false, AcksNone: false} {
		assert.Equal(t, want, ProducerConfig{Acks: acks}.Idempotent(), "acks %q", acks)
	}
}
