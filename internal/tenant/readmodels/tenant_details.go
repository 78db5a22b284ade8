// Package readmodels contains query-shaped views assembled from several stores.
package readmodels

import "warden/internal/tenant/models"

// TenantDetails is a tenant with membership counts for the admin view.
type TenantDetails struct {
	Tenant        *models.Tenant
	MemberCount   int
	AdminCount    int
	InactiveCount int
}

// NewTenantDetails counts members by role and status.
func NewTenantDetails(t *models.Tenant, members []*models.TenantUser) *TenantDetails {
	d := &TenantDetails{Tenant: t, MemberCount: len(members)}
	for _, m := range members {
		if m.Role == models.TenantRoleAdmin {
			d.AdminCount++
		}
		if m.Status != models.MemberStatusActive {
			d.InactiveCount++
		}
	}
	return d
}
