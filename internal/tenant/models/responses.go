package models

import "time"

type TenantResponse struct {
	ID          string       `json:"id"`
	Domain      string       `json:"domain"`
	Name        string       `json:"name"`
	Status      TenantStatus `json:"status"`
	Description string       `json:"description,omitempty"`
	Region      string       `json:"region,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func NewTenantResponse(t *Tenant) *TenantResponse {
	return &TenantResponse{
		ID:          t.ID.String(),
		Domain:      t.Domain,
		Name:        t.Name,
		Status:      t.Status,
		Description: t.Description,
		Region:      t.Region,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type TenantListResponse struct {
	Tenants []*TenantResponse `json:"tenants"`
}

// MembershipResponse describes the caller's effective membership.
type MembershipResponse struct {
	ID        string       `json:"id"`
	TenantID  string       `json:"tenant_id"`
	UserID    string       `json:"user_id"`
	Role      TenantRole   `json:"role"`
	Status    MemberStatus `json:"status"`
	Synthetic bool         `json:"synthetic"`
}

func NewMembershipResponse(m Membership) *MembershipResponse {
	return &MembershipResponse{
		ID:        m.ID(),
		TenantID:  m.TenantID().String(),
		UserID:    m.UserID().String(),
		Role:      m.Role(),
		Status:    m.Status(),
		Synthetic: m.IsSynthetic(),
	}
}

type MemberResponse struct {
	ID        string       `json:"id"`
	TenantID  string       `json:"tenant_id"`
	UserID    string       `json:"user_id"`
	Role      TenantRole   `json:"role"`
	Status    MemberStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func NewMemberResponse(tu *TenantUser) *MemberResponse {
	return &MemberResponse{
		ID:        tu.ID.String(),
		TenantID:  tu.TenantID.String(),
		UserID:    tu.UserID.String(),
		Role:      tu.Role,
		Status:    tu.Status,
		CreatedAt: tu.CreatedAt,
		UpdatedAt: tu.UpdatedAt,
	}
}

type MemberListResponse struct {
	Members []*MemberResponse `json:"members"`
}

// SelectTenantResponse echoes the tenant now active on the session.
type SelectTenantResponse struct {
	TenantID     string `json:"tenant_id"`
	TenantUserID string `json:"tenant_user_id,omitempty"`
	Synthetic    bool   `json:"synthetic"`
}
