package models

type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "ACTIVE"
	TenantStatusInactive TenantStatus = "INACTIVE"
)

func (s TenantStatus) IsValid() bool {
	return s == TenantStatusActive || s == TenantStatusInactive
}

// TenantRole is a privilege level scoped to one tenant.
// Ordering lives in the rbac package.
type TenantRole string

const (
	TenantRoleAdmin TenantRole = "ADMIN"
	TenantRoleUser  TenantRole = "USER"
)

func (r TenantRole) IsValid() bool {
	return r == TenantRoleAdmin || r == TenantRoleUser
}

type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "ACTIVE"
	MemberStatusInactive MemberStatus = "INACTIVE"
)

func (s MemberStatus) IsValid() bool {
	return s == MemberStatusActive || s == MemberStatusInactive
}

type MembershipKind string

const (
	MembershipPersisted MembershipKind = "persisted"
	MembershipSynthetic MembershipKind = "synthetic"
)

// SyntheticIDPrefix marks membership ids that have no row behind them.
const SyntheticIDPrefix = "synthetic:"
