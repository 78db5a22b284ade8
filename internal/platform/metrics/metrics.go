package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	UsersCreated    prometheus.Counter
	SessionsCreated prometheus.Counter
	SessionsRevoked prometheus.Counter
	LoginFailures   *prometheus.CounterVec
	ResolveFailures *prometheus.CounterVec
	EndpointLatency *prometheus.HistogramVec

	// OTP metrics
	OTPSent          *prometheus.CounterVec
	OTPVerified      *prometheus.CounterVec
	OTPFailed        *prometheus.CounterVec
	DeliveryFailures *prometheus.CounterVec

	// Authorization pipeline metrics
	AuthzDenials  *prometheus.CounterVec
	AuthzDuration prometheus.Histogram
}

// New creates and registers all metrics on the default registry.
// It panics if called twice in one process; tests use NewWithRegistry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers all metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "warden_users_created_total",
			Help: "Total number of users created",
		}),
		SessionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "warden_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		SessionsRevoked: f.NewCounter(prometheus.CounterOpts{
			Name: "warden_sessions_revoked_total",
			Help: "Total number of sessions deleted by logout, destroy-others or password reset",
		}),
		LoginFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_login_failures_total",
			Help: "Total number of failed logins, labeled by reason",
		}, []string{"reason"}),
		ResolveFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_resolve_failures_total",
			Help: "Bearer resolution failures, labeled by error code",
		}, []string{"code"}),
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "warden_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		OTPSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_otp_sent_total",
			Help: "OTP codes issued, labeled by flow and channel",
		}, []string{"flow", "channel"}),
		OTPVerified: f.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_otp_verified_total",
			Help: "Successful OTP verifications, labeled by flow",
		}, []string{"flow"}),
		OTPFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_otp_failed_total",
			Help: "Failed OTP verifications, labeled by flow and error code",
		}, []string{"flow", "code"}),
		DeliveryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_delivery_failures_total",
			Help: "Outbound message delivery failures, labeled by channel",
		}, []string{"channel"}),
		AuthzDenials: f.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_authz_denials_total",
			Help: "Requests rejected by the authorization pipeline, labeled by error code",
		}, []string{"code"}),
		AuthzDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_authz_duration_seconds",
			Help:    "Time spent in the authorization pipeline",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// IncrementUsersCreated increments the users created counter by 1
func (m *Metrics) IncrementUsersCreated() {
	m.UsersCreated.Inc()
}

func (m *Metrics) IncrementSessionsCreated() {
	m.SessionsCreated.Inc()
}

func (m *Metrics) AddSessionsRevoked(count int) {
	m.SessionsRevoked.Add(float64(count))
}

func (m *Metrics) IncrementLoginFailures(reason string) {
	m.LoginFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementResolveFailures(code string) {
	m.ResolveFailures.WithLabelValues(code).Inc()
}

// ObserveEndpointLatency records the latency for a given endpoint
func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}

func (m *Metrics) IncrementOTPSent(flow, channel string) {
	m.OTPSent.WithLabelValues(flow, channel).Inc()
}

func (m *Metrics) IncrementOTPVerified(flow string) {
	m.OTPVerified.WithLabelValues(flow).Inc()
}

func (m *Metrics) IncrementOTPFailed(flow, code string) {
	m.OTPFailed.WithLabelValues(flow, code).Inc()
}

func (m *Metrics) IncrementDeliveryFailures(channel string) {
	m.DeliveryFailures.WithLabelValues(channel).Inc()
}

func (m *Metrics) IncrementAuthzDenials(code string) {
	m.AuthzDenials.WithLabelValues(code).Inc()
}

func (m *Metrics) ObserveAuthzDuration(durationSeconds float64) {
	m.AuthzDuration.Observe(durationSeconds)
}
