// Package seeder prepares stores at startup: the bootstrap SUPER_ADMIN in
// every environment and a small demo tenant outside production.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"warden/internal/auth/models"
	tenantmodels "warden/internal/tenant/models"
	id "warden/pkg/domain"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/middleware/requesttime"
	"warden/pkg/platform/sentinel"
	"warden/pkg/secrets"
)

// DemoPassword is shared by every demo account.
const DemoPassword = "demo-password-1"

// DemoTenantDomain is the domain of the seeded demo tenant.
const DemoTenantDomain = "demo.localhost"

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Execute(ctx context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error)
}

type TenantStore interface {
	CreateIfDomainAvailable(ctx context.Context, tenant *tenantmodels.Tenant) error
	FindByDomain(ctx context.Context, domain string) (*tenantmodels.Tenant, error)
}

type TenantUserStore interface {
	Create(ctx context.Context, tu *tenantmodels.TenantUser) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Seeder populates stores with the accounts the service needs to be usable.
type Seeder struct {
	users   UserStore
	tenants TenantStore
	members TenantUserStore
	logger  *slog.Logger
	audit   *audit.Logger
}

func New(users UserStore, tenants TenantStore, members TenantUserStore, auditPub AuditPublisher, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		users:   users,
		tenants: tenants,
		members: members,
		logger:  logger,
		audit:   audit.NewLogger(logger, auditPub),
	}
}

// BootstrapAdmin makes sure an account with email exists and is an active
// SUPER_ADMIN. An existing account is promoted; its password is left alone.
func (s *Seeder) BootstrapAdmin(ctx context.Context, email, password string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == models.RoleSuperAdmin && existing.IsActive() {
			return existing, nil
		}
		promoted, err := s.users.Execute(ctx, existing.ID, func(*models.User) error { return nil }, func(u *models.User) {
			u.Role = models.RoleSuperAdmin
			u.Status = models.UserStatusActive
			u.UpdatedAt = requesttime.Now(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to promote bootstrap admin: %w", err)
		}
		s.audit.Log(ctx, string(audit.EventAdminBootstrapped), "user_id", promoted.ID.String(), "created", false)
		return promoted, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}

	u, err := s.newAccount(ctx, email, models.RoleSuperAdmin, password, "Administrator")
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, string(audit.EventAdminBootstrapped), "user_id", u.ID.String(), "created", true)
	return u, nil
}

// SeedDemo creates a demo tenant with one tenant ADMIN and one tenant USER.
// Running it twice is a no-op.
func (s *Seeder) SeedDemo(ctx context.Context) error {
	if _, err := s.tenants.FindByDomain(ctx, DemoTenantDomain); err == nil {
		s.logger.InfoContext(ctx, "demo data already present", "domain", DemoTenantDomain)
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("failed to look up demo tenant: %w", err)
	}

	now := requesttime.Now(ctx)
	tenant, err := tenantmodels.NewTenant(id.NewTenantID(), DemoTenantDomain, "Demo", now)
	if err != nil {
		return err
	}
	if err := s.tenants.CreateIfDomainAvailable(ctx, tenant); err != nil {
		return fmt.Errorf("failed to create demo tenant: %w", err)
	}

	demo := []struct {
		email string
		name  string
		role  tenantmodels.TenantRole
	}{
		{"owner@" + DemoTenantDomain, "Demo Owner", tenantmodels.TenantRoleAdmin},
		{"member@" + DemoTenantDomain, "Demo Member", tenantmodels.TenantRoleUser},
	}
	for _, d := range demo {
		u, err := s.newAccount(ctx, d.email, models.RoleUser, DemoPassword, d.name)
		if err != nil {
			return err
		}
		tu, err := tenantmodels.NewTenantUser(id.NewTenantUserID(), tenant.ID, u.ID, d.role, now)
		if err != nil {
			return err
		}
		if err := s.members.Create(ctx, tu); err != nil {
			return fmt.Errorf("failed to add demo member: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "demo data seeded",
		"tenant_id", tenant.ID.String(),
		"domain", DemoTenantDomain,
		"users", len(demo),
	)
	return nil
}

func (s *Seeder) newAccount(ctx context.Context, email string, role models.GlobalRole, password, name string) (*models.User, error) {
	u, err := models.NewUser(id.NewUserID(), email, role, requesttime.Now(ctx))
	if err != nil {
		return nil, err
	}
	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = hash
	u.DisplayName = name
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", email, err)
	}
	return u, nil
}
