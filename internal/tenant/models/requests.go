package models

import (
	"strings"

	id "warden/pkg/domain"
	"warden/pkg/platform/validation"
	validate "warden/pkg/validation"
)

type CreateTenantRequest struct {
	Domain      string `json:"domain" validate:"required,fqdn"`
	Name        string `json:"name" validate:"required,notblank"`
	Description string `json:"description,omitempty"`
	Region      string `json:"region,omitempty"`
}

func (r *CreateTenantRequest) Normalize() {
	if r == nil {
		return
	}
	r.Domain = NormalizeDomain(r.Domain)
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Region = strings.TrimSpace(r.Region)
}

func (r *CreateTenantRequest) Validate() error {
	if err := validation.CheckStringLength("domain", r.Domain, validation.MaxDomainLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("name", r.Name, validation.MaxNameLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("description", r.Description, validation.MaxDescriptionLength); err != nil {
		return err
	}
	return validate.Validate(r)
}

// UpdateTenantRequest patches only the fields that are present.
type UpdateTenantRequest struct {
	Name        *string       `json:"name,omitempty" validate:"omitempty,notblank"`
	Description *string       `json:"description,omitempty"`
	Region      *string       `json:"region,omitempty"`
	Status      *TenantStatus `json:"status,omitempty" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}

func (r *UpdateTenantRequest) Normalize() {
	if r == nil {
		return
	}
	trimPtr(r.Name)
	trimPtr(r.Description)
	trimPtr(r.Region)
	if r.Status != nil {
		*r.Status = TenantStatus(strings.ToUpper(strings.TrimSpace(string(*r.Status))))
	}
}

func (r *UpdateTenantRequest) Validate() error {
	if r.Name != nil {
		if err := validation.CheckStringLength("name", *r.Name, validation.MaxNameLength); err != nil {
			return err
		}
	}
	if r.Description != nil {
		if err := validation.CheckStringLength("description", *r.Description, validation.MaxDescriptionLength); err != nil {
			return err
		}
	}
	return validate.Validate(r)
}

// SelectTenantRequest picks the active tenant for the caller's session.
type SelectTenantRequest struct {
	TenantID string `json:"tenant_id,omitempty" validate:"omitempty,uuid"`
	Domain   string `json:"domain,omitempty"`
}

func (r *SelectTenantRequest) Normalize() {
	r.TenantID = strings.TrimSpace(r.TenantID)
	r.Domain = NormalizeDomain(r.Domain)
}

func (r *SelectTenantRequest) Validate() error {
	if err := validation.CheckStringLength("domain", r.Domain, validation.MaxDomainLength); err != nil {
		return err
	}
	return validate.Validate(r)
}

// Ref builds the tenant reference as sent. Supplying both or neither is left
// to the resolver to reject.
func (r *SelectTenantRequest) Ref() (TenantRef, error) {
	ref := TenantRef{Domain: r.Domain}
	if r.TenantID != "" {
		tenantID, err := id.ParseTenantID(r.TenantID)
		if err != nil {
			return TenantRef{}, err
		}
		ref.ID = &tenantID
	}
	return ref, nil
}

// AddMemberRequest adds an existing user to a tenant by email.
type AddMemberRequest struct {
	Email string     `json:"email" validate:"required,email"`
	Role  TenantRole `json:"role" validate:"required,oneof=ADMIN USER"`
}

func (r *AddMemberRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Role = TenantRole(strings.ToUpper(strings.TrimSpace(string(r.Role))))
}

func (r *AddMemberRequest) Validate() error {
	if err := validation.CheckStringLength("email", r.Email, validation.MaxEmailLength); err != nil {
		return err
	}
	return validate.Validate(r)
}

// UpdateMemberRequest changes a member's role or status.
type UpdateMemberRequest struct {
	Role   *TenantRole   `json:"role,omitempty" validate:"omitempty,oneof=ADMIN USER"`
	Status *MemberStatus `json:"status,omitempty" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}

func (r *UpdateMemberRequest) Normalize() {
	if r.Role != nil {
		*r.Role = TenantRole(strings.ToUpper(strings.TrimSpace(string(*r.Role))))
	}
	if r.Status != nil {
		*r.Status = MemberStatus(strings.ToUpper(strings.TrimSpace(string(*r.Status))))
	}
}

func (r *UpdateMemberRequest) Validate() error {
	return validate.Validate(r)
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
