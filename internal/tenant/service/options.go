package service

import (
	"log/slog"

	tenantmetrics "warden/internal/tenant/metrics"
	"warden/pkg/platform/audit"
)

type options struct {
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *tenantmetrics.Metrics
}

// Option configures TenantService, MemberService and Resolver alike.
type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(o *options) { o.auditPublisher = publisher }
}

// WithMetrics enables the tenant counters. Without it nothing is recorded.
func WithMetrics(m *tenantmetrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// deps is embedded by every service in this package.
type deps struct {
	audit   *audit.Logger
	metrics *tenantmetrics.Metrics
}

func newDeps(opts []Option) deps {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return deps{
		audit:   audit.NewLogger(o.logger, o.auditPublisher),
		metrics: o.metrics,
	}
}
