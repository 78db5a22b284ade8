package authz

import (
	"context"

	authmodels "warden/internal/auth/models"
	tenantmodels "warden/internal/tenant/models"
)

type (
	contextKeyPrincipal struct{}
	contextKeyTenant    struct{}
)

// Principal is the caller admitted by the gate. User and Session are nil for
// anonymous callers on GUEST routes.
type Principal struct {
	User    *authmodels.User
	Session *authmodels.Session
}

func (p *Principal) IsAnonymous() bool {
	return p == nil || p.User == nil
}

// TenantScope is the tenant and membership attached on tenant routes.
type TenantScope struct {
	Tenant     *tenantmodels.Tenant
	Membership tenantmodels.Membership
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal{}, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKeyPrincipal{}).(*Principal)
	return p, ok && p != nil
}

// UserFrom returns the authenticated user, or nil.
func UserFrom(ctx context.Context) *authmodels.User {
	if p, ok := PrincipalFrom(ctx); ok {
		return p.User
	}
	return nil
}

// SessionFrom returns the session the request was authenticated with, or nil.
func SessionFrom(ctx context.Context) *authmodels.Session {
	if p, ok := PrincipalFrom(ctx); ok {
		return p.Session
	}
	return nil
}

func WithTenantScope(ctx context.Context, scope TenantScope) context.Context {
	return context.WithValue(ctx, contextKeyTenant{}, scope)
}

func TenantScopeFrom(ctx context.Context) (TenantScope, bool) {
	scope, ok := ctx.Value(contextKeyTenant{}).(TenantScope)
	return scope, ok && scope.Tenant != nil
}
