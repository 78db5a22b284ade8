// Package kafka holds the producer settings for the audit event sink.
package kafka

import (
	"time"

	"warden/internal/platform/config"
	platformstrings "warden/pkg/platform/strings"
)

// Acks is the broker acknowledgement level: "0", "1" or "all".
type Acks string

const (
	AcksNone   Acks = "0"
	AcksLeader Acks = "1"
	AcksAll    Acks = "all"
)

// ProducerConfig configures producer.New.
type ProducerConfig struct {
	Brokers         []string
	Acks            Acks
	Retries         int
	DeliveryTimeout time.Duration
	AuditTopic      string
}

// Enabled reports whether any brokers were configured.
func (c ProducerConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// Idempotent reports whether idempotent writes can be used; they require
// acknowledgement from all in-sync replicas.
func (c ProducerConfig) Idempotent() bool {
	return c.Acks != AcksNone && c.Acks != AcksLeader
}

// DefaultProducerConfig waits for all replicas and retries a few times.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Acks:            AcksAll,
		Retries:         3,
		DeliveryTimeout: 30 * time.Second,
		AuditTopic:      "warden.audit",
	}
}

// FromConfig applies KAFKA_BROKERS (comma separated) and AUDIT_TOPIC to
// the defaults.
func FromConfig(k config.KafkaConfig) ProducerConfig {
	cfg := DefaultProducerConfig()
	cfg.Brokers = platformstrings.SplitList(k.Brokers)
	if k.AuditTopic != "" {
		cfg.AuditTopic = k.AuditTopic
	}
	return cfg
}
