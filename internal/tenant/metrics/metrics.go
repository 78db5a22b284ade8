package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TenantCreated             prometheus.Counter
	SyntheticMemberships      prometheus.Counter
	TenantSelections          *prometheus.CounterVec
	ResolveMembershipDuration prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TenantCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "warden_tenants_created_total",
			Help: "Total number of tenants created",
		}),
		SyntheticMemberships: f.NewCounter(prometheus.CounterOpts{
			Name: "warden_synthetic_memberships_total",
			Help: "Tenant admin memberships granted to global admins without a persisted row",
		}),
		TenantSelections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_tenant_selections_total",
			Help: "Active tenant selections written onto sessions, labeled by membership kind",
		}, []string{"kind"}),
		ResolveMembershipDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_resolve_membership_duration_seconds",
			Help:    "Duration of tenant membership resolution",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementTenantCreated() {
	m.TenantCreated.Inc()
}

func (m *Metrics) IncrementSyntheticMemberships() {
	m.SyntheticMemberships.Inc()
}

func (m *Metrics) IncrementTenantSelections(kind string) {
	m.TenantSelections.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveResolveMembership(start time.Time) {
	m.ResolveMembershipDuration.Observe(time.Since(start).Seconds())
}
