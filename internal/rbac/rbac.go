// Package rbac holds the privilege orderings for global and tenant roles and
// the single comparison both tiers use.
package rbac

import (
	authmodels "warden/internal/auth/models"
	tenantmodels "warden/internal/tenant/models"
)

// Order is a total order of roles listed from most to least privileged.
// A role at a lower index outranks every role after it.
type Order[R comparable] struct {
	rank map[R]int
}

// NewOrder builds an Order from roles listed most privileged first.
func NewOrder[R comparable](roles ...R) Order[R] {
	rank := make(map[R]int, len(roles))
	for i, r := range roles {
		rank[r] = i
	}
	return Order[R]{rank: rank}
}

// Satisfies reports whether actual is at least as privileged as required:
// index(actual) <= index(required). Unknown roles never satisfy and are never satisfied.
func (o Order[R]) Satisfies(actual, required R) bool {
	a, ok := o.rank[actual]
	if !ok {
		return false
	}
	r, ok := o.rank[required]
	if !ok {
		return false
	}
	return a <= r
}

var (
	GlobalOrder = NewOrder(
		authmodels.RoleSuperAdmin,
		authmodels.RoleAdmin,
		authmodels.RoleUser,
		authmodels.RoleGuest,
	)

	TenantOrder = NewOrder(
		tenantmodels.TenantRoleAdmin,
		tenantmodels.TenantRoleUser,
	)
)

// HasGlobalRole decides global admission. GUEST admits everyone, including a
// nil (unauthenticated) caller; every other role needs a user.
func HasGlobalRole(user *authmodels.User, required authmodels.GlobalRole) bool {
	if required == authmodels.RoleGuest {
		return true
	}
	if user == nil {
		return false
	}
	return GlobalOrder.Satisfies(user.Role, required)
}

// HasTenantRole decides tenant admission for a resolved membership.
func HasTenantRole(m tenantmodels.Membership, required tenantmodels.TenantRole) bool {
	if m.IsZero() {
		return false
	}
	return TenantOrder.Satisfies(m.Role(), required)
}
