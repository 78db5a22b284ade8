//go:build integration

// Package containers starts the Postgres and Kafka fixtures used by
// integration tests. Each is started once per test binary and shared.
package containers

import (
	"sync"
	"testing"
)

// lazy holds one fixture, started by the first caller that needs it.
type lazy[T any] struct {
	mu      sync.Mutex
	started bool
	value   T
}

func (l *lazy[T]) get(t *testing.T, start func(*testing.T) T) T {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		l.value = start(t)
		l.started = true
	}
	return l.value
}

type Manager struct {
	postgres lazy[*PostgresContainer]
	kafka    lazy[*KafkaContainer]
}

var manager Manager

func GetManager() *Manager { return &manager }

// GetPostgres returns the shared database with every migration applied.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	return m.postgres.get(t, NewPostgresContainer)
}

func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	return m.kafka.get(t, NewKafkaContainer)
}
