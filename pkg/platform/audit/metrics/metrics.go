// Package metrics instruments the audit publisher.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	QueueDepth      prometheus.Gauge
	Enqueued        *prometheus.CounterVec
	Dropped         *prometheus.CounterVec
	PersistDuration prometheus.Histogram
	PersistFailures *prometheus.CounterVec
}

// New registers on the default registry. Use NewWithRegistry in tests.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "warden_audit_queue_depth",
			Help: "Audit events waiting in the async buffer",
		}),
		Enqueued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_audit_events_enqueued_total",
			Help: "Audit events accepted by the publisher, by action",
		}, []string{"action"}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_audit_events_dropped_total",
			Help: "Audit events refused because the async buffer was full, by action",
		}, []string{"action"}),
		PersistDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_audit_persist_duration_seconds",
			Help:    "Time spent appending one event to the audit store",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		PersistFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_audit_persist_failures_total",
			Help: "Audit store appends that returned an error, by action",
		}, []string{"action"}),
	}
}

func (m *Metrics) Accepted(action string, depth int) {
	m.Enqueued.WithLabelValues(action).Inc()
	m.QueueDepth.Set(float64(depth))
}

func (m *Metrics) Rejected(action string) {
	m.Dropped.WithLabelValues(action).Inc()
}

func (m *Metrics) Dequeued(depth int) {
	m.QueueDepth.Set(float64(depth))
}

func (m *Metrics) Persisted(action string, start time.Time, err error) {
	m.PersistDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.PersistFailures.WithLabelValues(action).Inc()
	}
}
