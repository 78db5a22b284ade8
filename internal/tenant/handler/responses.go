package handler

import (
	"warden/internal/tenant/models"
	"warden/internal/tenant/readmodels"
)

type TenantDetailsResponse struct {
	*models.TenantResponse
	MemberCount   int `json:"member_count"`
	AdminCount    int `json:"admin_count"`
	InactiveCount int `json:"inactive_count"`
}

func toTenantDetailsResponse(d *readmodels.TenantDetails) *TenantDetailsResponse {
	return &TenantDetailsResponse{
		TenantResponse: models.NewTenantResponse(d.Tenant),
		MemberCount:    d.MemberCount,
		AdminCount:     d.AdminCount,
		InactiveCount:  d.InactiveCount,
	}
}

func toTenantListResponse(tenants []*models.Tenant) *models.TenantListResponse {
	res := &models.TenantListResponse{Tenants: make([]*models.TenantResponse, 0, len(tenants))}
	for _, t := range tenants {
		res.Tenants = append(res.Tenants, models.NewTenantResponse(t))
	}
	return res
}

func toMemberListResponse(members []*models.TenantUser) *models.MemberListResponse {
	res := &models.MemberListResponse{Members: make([]*models.MemberResponse, 0, len(members))}
	for _, m := range members {
		res.Members = append(res.Members, models.NewMemberResponse(m))
	}
	return res
}

func toSelectTenantResponse(t *models.Tenant, m models.Membership) *models.SelectTenantResponse {
	res := &models.SelectTenantResponse{TenantID: t.ID.String(), Synthetic: m.IsSynthetic()}
	if row, ok := m.Persisted(); ok {
		res.TenantUserID = row.ID.String()
	}
	return res
}
