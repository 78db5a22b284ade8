package testutil

import (
	"time"

	"github.com/google/uuid"

	authmodels "warden/internal/auth/models"
	tenantmodels "warden/internal/tenant/models"
	id "warden/pkg/domain"
)

// Fixed identifiers for tests that assert on ids.
var (
	AliceID  = id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111"))
	BobID    = id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222"))
	AcmeID   = id.TenantID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001"))
	GlobexID = id.TenantID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000002"))
)

// NewUser returns an active USER with a fresh id, then applies opts.
func NewUser(opts ...func(*authmodels.User)) *authmodels.User {
	now := time.Now()
	u := &authmodels.User{
		ID:        id.NewUserID(),
		Email:     "test@example.com",
		Role:      authmodels.RoleUser,
		Status:    authmodels.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// NewSession returns a fully authenticated session for AliceID that is
// valid for a day, then applies opts.
func NewSession(opts ...func(*authmodels.Session)) *authmodels.Session {
	now := time.Now()
	s := &authmodels.Session{
		ID:          id.NewSessionID(),
		UserID:      AliceID,
		AccessToken: uuid.NewString(),
		CreatedAt:   now,
		LastSeenAt:  now,
		ExpiresAt:   now.Add(24 * time.Hour),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func WithToken(token string) func(*authmodels.Session) {
	return func(s *authmodels.Session) { s.AccessToken = token }
}

func ExpiringAt(t time.Time) func(*authmodels.Session) {
	return func(s *authmodels.Session) { s.ExpiresAt = t }
}

// InTenant binds the session to a tenant selection.
func InTenant(tenantID id.TenantID, tenantUserID *id.TenantUserID) func(*authmodels.Session) {
	return func(s *authmodels.Session) {
		s.TenantID = &tenantID
		s.TenantUserID = tenantUserID
	}
}

// NewTenant returns an active tenant on a domain derived from its id.
func NewTenant(opts ...func(*tenantmodels.Tenant)) *tenantmodels.Tenant {
	now := time.Now()
	tid := id.NewTenantID()
	t := &tenantmodels.Tenant{
		ID:        tid,
		Domain:    tid.String()[:8] + ".example.com",
		Name:      "Test Tenant",
		Status:    tenantmodels.TenantStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewMember returns an active membership row.
func NewMember(tenantID id.TenantID, userID id.UserID, role tenantmodels.TenantRole) *tenantmodels.TenantUser {
	now := time.Now()
	return &tenantmodels.TenantUser{
		ID:        id.NewTenantUserID(),
		TenantID:  tenantID,
		UserID:    userID,
		Role:      role,
		Status:    tenantmodels.MemberStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
