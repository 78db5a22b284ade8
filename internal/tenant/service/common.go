package service

import (
	"context"
	"errors"

	authmodels "warden/internal/auth/models"
	"warden/internal/tenant/models"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/sentinel"
)

type TenantStore interface {
	CreateIfDomainAvailable(ctx context.Context, tenant *models.Tenant) error
	Update(ctx context.Context, tenant *models.Tenant) error
	Delete(ctx context.Context, tenantID id.TenantID) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindByDomain(ctx context.Context, domain string) (*models.Tenant, error)
	List(ctx context.Context) ([]*models.Tenant, error)
}

type TenantUserStore interface {
	Create(ctx context.Context, tu *models.TenantUser) error
	Update(ctx context.Context, tu *models.TenantUser) error
	FindByID(ctx context.Context, tenantUserID id.TenantUserID) (*models.TenantUser, error)
	FindByTenantAndUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*models.TenantUser, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.TenantUser, error)
	DeleteByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
}

// SessionStore is the slice of the session store used to record tenant selection.
type SessionStore interface {
	Execute(ctx context.Context, sessionID id.SessionID, validate func(*authmodels.Session) error, mutate func(*authmodels.Session)) (*authmodels.Session, error)
}

// UserDirectory looks up the accounts members are added from.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*authmodels.User, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

func requireTenantID(tenantID id.TenantID) error {
	if tenantID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "tenant ID required")
	}
	return nil
}

// translate turns a store error into a domain error: a miss becomes
// notFound, anything else an internal error described by action.
func translate(err error, notFound dErrors.Code, action string) error {
	if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, action)
	}
	msg := "tenant not found"
	if notFound == dErrors.CodeTenantUserNotFound {
		msg = "tenant member not found"
	}
	return dErrors.New(notFound, msg)
}

func wrapTenantErr(err error, action string) error {
	return translate(err, dErrors.CodeTenantNotFound, action)
}

func wrapMemberErr(err error, action string) error {
	return translate(err, dErrors.CodeTenantUserNotFound, action)
}

// isDuplicate reports a lost uniqueness race: a taken domain or an
// existing membership.
func isDuplicate(err error) bool {
	return errors.Is(err, sentinel.ErrAlreadyUsed) || errors.Is(err, sentinel.ErrConflict)
}
