package models

import (
	"fmt"
	"strings"
	"time"

	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
)

type Tenant struct {
	ID          id.TenantID  `json:"id"`
	Domain      string       `json:"domain"`
	Name        string       `json:"name"`
	Status      TenantStatus `json:"status"`
	Description string       `json:"description,omitempty"`
	Region      string       `json:"region,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// Deactivate transitions the tenant to inactive status.
// Returns an error if the tenant is already inactive.
func (t *Tenant) Deactivate(now time.Time) error {
	if !t.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant is already inactive")
	}
	t.Status = TenantStatusInactive
	t.UpdatedAt = now
	return nil
}

// Reactivate transitions the tenant to active status.
// Returns an error if the tenant is already active.
func (t *Tenant) Reactivate(now time.Time) error {
	if t.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant is already active")
	}
	t.Status = TenantStatusActive
	t.UpdatedAt = now
	return nil
}

// NormalizeDomain is the canonical form used for lookups and uniqueness.
func NormalizeDomain(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}

func NewTenant(tenantID id.TenantID, domain, name string, now time.Time) (*Tenant, error) {
	domain = NormalizeDomain(domain)
	name = strings.TrimSpace(name)
	if domain == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant domain cannot be empty")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant name cannot be empty")
	}
	return &Tenant{
		ID:        tenantID,
		Domain:    domain,
		Name:      name,
		Status:    TenantStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TenantUser is a persisted membership row. At most one exists per (tenant, user).
type TenantUser struct {
	ID        id.TenantUserID `json:"id"`
	TenantID  id.TenantID     `json:"tenant_id"`
	UserID    id.UserID       `json:"user_id"`
	Role      TenantRole      `json:"role"`
	Status    MemberStatus    `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (tu *TenantUser) IsActive() bool {
	return tu.Status == MemberStatusActive
}

func NewTenantUser(tenantUserID id.TenantUserID, tenantID id.TenantID, userID id.UserID, role TenantRole, now time.Time) (*TenantUser, error) {
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("invalid tenant role: %s", role))
	}
	return &TenantUser{
		ID:        tenantUserID,
		TenantID:  tenantID,
		UserID:    userID,
		Role:      role,
		Status:    MemberStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Membership is what tenant authorization hands downstream: either a stored
// TenantUser or an elevation synthesized for a global administrator. Only the
// persisted variant exposes a *TenantUser, so the synthetic one can never reach
// a store.
type Membership struct {
	kind     MembershipKind
	row      *TenantUser
	tenantID id.TenantID
	userID   id.UserID
}

// PersistedMembership wraps a stored row.
func PersistedMembership(tu *TenantUser) Membership {
	return Membership{kind: MembershipPersisted, row: tu, tenantID: tu.TenantID, userID: tu.UserID}
}

// SyntheticMembership is the ADMIN/ACTIVE elevation granted to global admins
// with no row in the tenant.
func SyntheticMembership(tenantID id.TenantID, userID id.UserID) Membership {
	return Membership{kind: MembershipSynthetic, tenantID: tenantID, userID: userID}
}

func (m Membership) Kind() MembershipKind { return m.kind }

func (m Membership) IsSynthetic() bool { return m.kind == MembershipSynthetic }

// Persisted returns the writable row for persisted memberships.
func (m Membership) Persisted() (*TenantUser, bool) {
	if m.kind != MembershipPersisted || m.row == nil {
		return nil, false
	}
	return m.row, true
}

func (m Membership) TenantID() id.TenantID { return m.tenantID }

func (m Membership) UserID() id.UserID { return m.userID }

func (m Membership) Role() TenantRole {
	if m.kind == MembershipSynthetic {
		return TenantRoleAdmin
	}
	if m.row == nil {
		return ""
	}
	return m.row.Role
}

func (m Membership) Status() MemberStatus {
	if m.kind == MembershipSynthetic {
		return MemberStatusActive
	}
	if m.row == nil {
		return ""
	}
	return m.row.Status
}

func (m Membership) IsActive() bool {
	return m.Status() == MemberStatusActive
}

// ID is the row id, or "synthetic:<tenant>:<user>" for elevations.
func (m Membership) ID() string {
	if m.kind == MembershipSynthetic {
		return SyntheticIDPrefix + m.tenantID.String() + ":" + m.userID.String()
	}
	if m.row == nil {
		return ""
	}
	return m.row.ID.String()
}

// IsZero reports a Membership that was never resolved.
func (m Membership) IsZero() bool {
	return m.kind == ""
}
