// Package authz is the request authorization pipeline that sits in front of
// every protected route.
package authz

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	authmodels "warden/internal/auth/models"
	"warden/internal/platform/metrics"
	"warden/internal/rbac"
	tenantmodels "warden/internal/tenant/models"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/httputil"
	authmw "warden/pkg/platform/middleware/auth"
	"warden/pkg/requestcontext"
)

const (
	// TenantIDParam is the chi URL parameter read by PATH tenant routes.
	TenantIDParam = "tenantId"
	// TenantDomainHeader carries the tenant domain on DOMAIN routes.
	TenantDomainHeader = "X-Tenant-Domain"
)

// IdentityResolver turns a bearer into a fully authenticated principal.
type IdentityResolver interface {
	Resolve(ctx context.Context, bearer string) (*authmodels.User, *authmodels.Session, error)
}

// MembershipResolver finds the caller's effective membership in a tenant.
type MembershipResolver interface {
	ResolveMembership(ctx context.Context, ref tenantmodels.TenantRef, user *authmodels.User) (*tenantmodels.Tenant, tenantmodels.Membership, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Gate admits or rejects requests. Checks run in a fixed order: session and
// OTP state inside Resolve, then the global role, then tenant membership.
type Gate struct {
	identities IdentityResolver
	tenants    MembershipResolver
	logger     *slog.Logger
	audit      *audit.Logger
	auditPub   AuditPublisher
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(g *Gate) {
		g.auditPub = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

// WithTracer injects a tracer; the global provider is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(g *Gate) {
		g.tracer = t
	}
}

func NewGate(identities IdentityResolver, tenants MembershipResolver, opts ...Option) *Gate {
	g := &Gate{
		identities: identities,
		tenants:    tenants,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.tracer == nil {
		g.tracer = otel.Tracer("warden/authz")
	}
	g.audit = audit.NewLogger(g.logger, g.auditPub)
	return g
}

// Require admits callers whose global role satisfies role.
func (g *Gate) Require(role authmodels.GlobalRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := g.tracer.Start(r.Context(), "authz.require",
				trace.WithAttributes(attribute.String("authz.required_role", string(role))))
			defer span.End()
			start := time.Now()

			p, err := g.admitGlobal(ctx, r, role)
			g.observe(start)
			if err != nil {
				g.deny(ctx, w, span, p, err)
				return
			}
			annotate(span, p)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, p)))
		})
	}
}

// RequireTenant admits callers with the global role and, in the tenant named
// by method, a membership satisfying tenantRole. Global admins without a row
// are admitted through a synthetic ADMIN membership.
func (g *Gate) RequireTenant(role authmodels.GlobalRole, tenantRole tenantmodels.TenantRole, method tenantmodels.RefMethod) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := g.tracer.Start(r.Context(), "authz.require_tenant",
				trace.WithAttributes(
					attribute.String("authz.required_role", string(role)),
					attribute.String("authz.required_tenant_role", string(tenantRole)),
					attribute.String("authz.tenant_ref", string(method)),
				))
			defer span.End()
			start := time.Now()

			p, err := g.admitGlobal(ctx, r, role)
			if err != nil {
				g.observe(start)
				g.deny(ctx, w, span, p, err)
				return
			}

			scope, err := g.admitTenant(ctx, r, p, tenantRole, method)
			g.observe(start)
			if err != nil {
				g.deny(ctx, w, span, p, err)
				return
			}
			annotate(span, p)
			span.SetAttributes(
				attribute.String("tenant.id", scope.Tenant.ID.String()),
				attribute.Bool("tenant.synthetic_membership", scope.Membership.IsSynthetic()),
			)
			ctx = WithTenantScope(WithPrincipal(ctx, p), scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Gate) admitGlobal(ctx context.Context, r *http.Request, role authmodels.GlobalRole) (*Principal, error) {
	p, err := g.authenticate(ctx, r, role)
	if err != nil {
		return nil, err
	}
	if !rbac.HasGlobalRole(p.User, role) {
		return p, dErrors.New(dErrors.CodeUserDoesNotHaveRequiredRole, "requires role "+string(role))
	}
	return p, nil
}

// authenticate reuses a principal an outer gate already admitted. Without a
// bearer only GUEST routes proceed, anonymously.
func (g *Gate) authenticate(ctx context.Context, r *http.Request, role authmodels.GlobalRole) (*Principal, error) {
	if p, ok := PrincipalFrom(ctx); ok && !p.IsAnonymous() {
		return p, nil
	}
	bearer, ok := authmw.ExtractBearer(r)
	if !ok {
		bearer = requestcontext.Bearer(ctx)
	}
	if bearer == "" {
		if role == authmodels.RoleGuest {
			return &Principal{}, nil
		}
		return nil, dErrors.New(dErrors.CodeUserNotAuthenticated, "authentication required")
	}
	user, session, err := g.identities.Resolve(ctx, bearer)
	if err != nil {
		return nil, err
	}
	return &Principal{User: user, Session: session}, nil
}

func (g *Gate) admitTenant(ctx context.Context, r *http.Request, p *Principal, tenantRole tenantmodels.TenantRole, method tenantmodels.RefMethod) (TenantScope, error) {
	ref, err := tenantRef(r, method)
	if err != nil {
		return TenantScope{}, err
	}
	tenant, membership, err := g.tenants.ResolveMembership(ctx, ref, p.User)
	if err != nil {
		return TenantScope{}, err
	}
	if !rbac.HasTenantRole(membership, tenantRole) {
		return TenantScope{}, dErrors.New(dErrors.CodeUserDoesNotHaveRequiredRole, "requires tenant role "+string(tenantRole))
	}
	return TenantScope{Tenant: tenant, Membership: membership}, nil
}

// tenantRef reads the tenant reference for the route's method.
func tenantRef(r *http.Request, method tenantmodels.RefMethod) (tenantmodels.TenantRef, error) {
	switch method {
	case tenantmodels.RefByPath:
		raw := strings.TrimSpace(chi.URLParam(r, TenantIDParam))
		if raw == "" {
			return tenantmodels.TenantRef{}, dErrors.New(dErrors.CodeBadRequest, "tenant id is required")
		}
		tenantID, err := id.ParseTenantID(raw)
		if err != nil {
			return tenantmodels.TenantRef{}, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id")
		}
		return tenantmodels.RefByID(tenantID), nil
	case tenantmodels.RefByDomain:
		domain := strings.TrimSpace(r.Header.Get(TenantDomainHeader))
		if domain == "" {
			domain = hostOnly(r.Host)
		}
		if domain == "" {
			return tenantmodels.TenantRef{}, dErrors.New(dErrors.CodeBadRequest, "tenant domain is required")
		}
		return tenantmodels.RefByDomainName(domain), nil
	default:
		return tenantmodels.TenantRef{}, dErrors.New(dErrors.CodeInternal, "unknown tenant reference method "+string(method))
	}
}

func hostOnly(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func (g *Gate) deny(ctx context.Context, w http.ResponseWriter, span trace.Span, p *Principal, err error) {
	code := dErrors.CodeOf(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, string(code))

	if g.metrics != nil {
		g.metrics.IncrementAuthzDenials(string(code))
	}
	attrs := []any{"decision", "denied", "reason", string(code)}
	if !p.IsAnonymous() {
		attrs = append(attrs, "user_id", p.User.ID.String())
	}
	if code == dErrors.CodeInternal {
		g.logger.ErrorContext(ctx, "authorization failed", append(attrs, "error", err)...)
	} else {
		g.audit.Log(ctx, string(audit.EventAccessDenied), attrs...)
	}
	httputil.WriteError(w, err)
}

func (g *Gate) observe(start time.Time) {
	if g.metrics != nil {
		g.metrics.ObserveAuthzDuration(time.Since(start).Seconds())
	}
}

func annotate(span trace.Span, p *Principal) {
	if p.IsAnonymous() {
		span.SetAttributes(attribute.Bool("authz.anonymous", true))
		return
	}
	span.SetAttributes(
		attribute.String("user.id", p.User.ID.String()),
		attribute.String("user.role", string(p.User.Role)),
	)
}
