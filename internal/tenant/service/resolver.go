package service

import (
	"context"
	"errors"
	"time"

	authmodels "warden/internal/auth/models"
	"warden/internal/rbac"
	"warden/internal/tenant/models"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/sentinel"
)

// Resolver turns a tenant reference plus an authenticated user into the
// membership that tenant-scoped operations authorize against.
type Resolver struct {
	tenants  TenantStore
	members  TenantUserStore
	sessions SessionStore
	deps
}

func NewResolver(tenants TenantStore, members TenantUserStore, sessions SessionStore, opts ...Option) *Resolver {
	return &Resolver{
		tenants:  tenants,
		members:  members,
		sessions: sessions,
		deps:     newDeps(opts),
	}
}

// ResolveMembership finds the tenant named by ref and the caller's membership in it.
// A global ADMIN (or above) without a row gets a synthetic ADMIN membership that
// is rebuilt on every call and never stored.
func (r *Resolver) ResolveMembership(ctx context.Context, ref models.TenantRef, user *authmodels.User) (*models.Tenant, models.Membership, error) {
	if r.metrics != nil {
		defer r.metrics.ObserveResolveMembership(time.Now())
	}
	if user == nil {
		return nil, models.Membership{}, dErrors.New(dErrors.CodeUserNotAuthenticated, "authentication required")
	}

	tenant, err := r.findTenant(ctx, ref)
	if err != nil {
		return nil, models.Membership{}, err
	}

	row, err := r.members.FindByTenantAndUser(ctx, tenant.ID, user.ID)
	switch {
	case err == nil:
		if !row.IsActive() {
			return nil, models.Membership{}, dErrors.New(dErrors.CodeTenantUserNotActive, "tenant membership is not active")
		}
		return tenant, models.PersistedMembership(row), nil
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return nil, models.Membership{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenant membership")
	}

	if !rbac.HasGlobalRole(user, authmodels.RoleAdmin) {
		return nil, models.Membership{}, dErrors.New(dErrors.CodeTenantUserNotFound, "user is not a member of this tenant")
	}

	m := models.SyntheticMembership(tenant.ID, user.ID)
	r.audit.Log(ctx, string(audit.EventSyntheticMembership),
		"user_id", user.ID.String(),
		"tenant_id", tenant.ID.String(),
		"membership_id", m.ID(),
		"global_role", string(user.Role),
		"decision", "granted",
		"synthetic", true,
	)
	if r.metrics != nil {
		r.metrics.IncrementSyntheticMemberships()
	}
	return tenant, m, nil
}

func (r *Resolver) findTenant(ctx context.Context, ref models.TenantRef) (*models.Tenant, error) {
	var (
		tenant *models.Tenant
		err    error
	)
	switch {
	case ref.HasID() && ref.HasDomain():
		return nil, dErrors.New(dErrors.CodeAmbiguousTenantReference, "supply either a tenant id or a domain, not both")
	case ref.HasID():
		tenant, err = r.tenants.FindByID(ctx, *ref.ID)
	case ref.HasDomain():
		tenant, err = r.tenants.FindByDomain(ctx, ref.Domain)
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant id or domain required")
	}
	if err != nil {
		return nil, wrapTenantErr(err, "failed to load tenant")
	}
	return tenant, nil
}

// SetActiveTenant records the membership's tenant on the session. The
// tenant must be active, checked first, then the membership must be active
// and owned by the session's user. Synthetic memberships leave TenantUserID
// unset.
func (r *Resolver) SetActiveTenant(ctx context.Context, session *authmodels.Session, membership models.Membership) (*authmodels.Session, error) {
	if session == nil {
		return nil, dErrors.New(dErrors.CodeUserNotAuthenticated, "authentication required")
	}
	if membership.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "membership required")
	}

	if row, ok := membership.Persisted(); ok {
		// Re-read so a membership deactivated since resolution is caught.
		fresh, err := r.members.FindByID(ctx, row.ID)
		if err != nil {
			return nil, wrapMemberErr(err, "failed to load tenant membership")
		}
		membership = models.PersistedMembership(fresh)
	}

	// An inactive tenant rejects every membership under it, whatever the
	// membership's own state.
	tenant, err := r.tenants.FindByID(ctx, membership.TenantID())
	if err != nil {
		return nil, wrapTenantErr(err, "failed to load tenant")
	}
	if !tenant.IsActive() {
		return nil, dErrors.New(dErrors.CodeTenantNotActive, "tenant is not active")
	}
	if !membership.IsActive() {
		return nil, dErrors.New(dErrors.CodeTenantUserNotActive, "tenant membership is not active")
	}
	if membership.UserID() != session.UserID {
		return nil, dErrors.New(dErrors.CodeTenantUserSessionMismatch, "membership does not belong to the session user")
	}

	tenantUserID := membershipRowID(membership)
	updated, err := r.sessions.Execute(ctx, session.ID,
		func(s *authmodels.Session) error {
			if s.UserID != membership.UserID() {
				return dErrors.New(dErrors.CodeTenantUserSessionMismatch, "membership does not belong to the session user")
			}
			return nil
		},
		func(s *authmodels.Session) {
			s.SelectTenant(tenant.ID, tenantUserID)
		},
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeTenantUserSessionMismatch) {
			return nil, err
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeSessionNotFound, "session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to select tenant")
	}

	r.audit.Log(ctx, string(audit.EventTenantSelected),
		"user_id", session.UserID.String(),
		"tenant_id", tenant.ID.String(),
		"membership_id", membership.ID(),
		"synthetic", membership.IsSynthetic(),
	)
	if r.metrics != nil {
		r.metrics.IncrementTenantSelections(string(membership.Kind()))
	}
	return updated, nil
}

func membershipRowID(m models.Membership) *id.TenantUserID {
	if row, ok := m.Persisted(); ok {
		v := row.ID
		return &v
	}
	return nil
}

// SelectTenant resolves ref for the session's user and makes it the active tenant.
func (r *Resolver) SelectTenant(ctx context.Context, session *authmodels.Session, user *authmodels.User, ref models.TenantRef) (*models.Tenant, models.Membership, error) {
	tenant, membership, err := r.ResolveMembership(ctx, ref, user)
	if err != nil {
		return nil, models.Membership{}, err
	}
	if _, err := r.SetActiveTenant(ctx, session, membership); err != nil {
		return nil, models.Membership{}, err
	}
	return tenant, membership, nil
}
