package service

import (
	"context"

	"warden/internal/tenant/models"
	"warden/internal/tenant/readmodels"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/middleware/requesttime"
)

// TenantService orchestrates tenant lifecycle management.
type TenantService struct {
	tenants TenantStore
	members TenantUserStore
	deps
}

func NewTenantService(tenants TenantStore, members TenantUserStore, opts ...Option) *TenantService {
	return &TenantService{
		tenants: tenants,
		members: members,
		deps:    newDeps(opts),
	}
}

func (s *TenantService) CreateTenant(ctx context.Context, actor id.UserID, req *models.CreateTenantRequest) (*models.Tenant, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	t, err := models.NewTenant(id.NewTenantID(), req.Domain, req.Name, requesttime.Now(ctx))
	if err != nil {
		return nil, err
	}
	t.Description = req.Description
	t.Region = req.Region

	if err := s.tenants.CreateIfDomainAvailable(ctx, t); err != nil {
		if isDuplicate(err) {
			return nil, dErrors.New(dErrors.CodeConflict, "tenant domain must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tenant")
	}

	s.audit.Log(ctx, string(audit.EventTenantCreated),
		"user_id", actor.String(),
		"tenant_id", t.ID.String(),
		"domain", t.Domain,
	)
	if s.metrics != nil {
		s.metrics.IncrementTenantCreated()
	}
	return t, nil
}

func (s *TenantService) GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	t, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err, "failed to load tenant")
	}
	return t, nil
}

// GetTenantDetails loads a tenant together with its membership counts.
func (s *TenantService) GetTenantDetails(ctx context.Context, tenantID id.TenantID) (*readmodels.TenantDetails, error) {
	t, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	members, err := s.members.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list members")
	}
	return readmodels.NewTenantDetails(t, members), nil
}

func (s *TenantService) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tenants")
	}
	return tenants, nil
}

// UpdateTenant applies the fields present in req. A status change goes through
// Deactivate/Reactivate so a no-op transition is reported as a conflict.
func (s *TenantService) UpdateTenant(ctx context.Context, actor id.UserID, tenantID id.TenantID, req *models.UpdateTenantRequest) (*models.Tenant, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	t, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err, "failed to load tenant")
	}

	now := requesttime.Now(ctx)
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Region != nil {
		t.Region = *req.Region
	}
	if req.Status != nil && *req.Status != t.Status {
		switch *req.Status {
		case models.TenantStatusInactive:
			err = t.Deactivate(now)
		case models.TenantStatusActive:
			err = t.Reactivate(now)
		default:
			err = dErrors.New(dErrors.CodeValidation, "unknown tenant status")
		}
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return nil, dErrors.New(dErrors.CodeConflict, err.Error())
			}
			return nil, err
		}
	}
	t.UpdatedAt = now

	if err := s.tenants.Update(ctx, t); err != nil {
		if isDuplicate(err) {
			return nil, dErrors.New(dErrors.CodeConflict, "tenant domain must be unique")
		}
		return nil, wrapTenantErr(err, "failed to update tenant")
	}

	s.audit.Log(ctx, string(audit.EventTenantUpdated),
		"user_id", actor.String(),
		"tenant_id", t.ID.String(),
		"status", string(t.Status),
	)
	return t, nil
}

// DeleteTenant removes the tenant and every membership row pointing at it.
func (s *TenantService) DeleteTenant(ctx context.Context, actor id.UserID, tenantID id.TenantID) error {
	if err := requireTenantID(tenantID); err != nil {
		return err
	}
	if _, err := s.tenants.FindByID(ctx, tenantID); err != nil {
		return wrapTenantErr(err, "failed to load tenant")
	}
	removed, err := s.members.DeleteByTenant(ctx, tenantID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete tenant members")
	}
	if err := s.tenants.Delete(ctx, tenantID); err != nil {
		return wrapTenantErr(err, "failed to delete tenant")
	}

	s.audit.Log(ctx, string(audit.EventTenantDeleted),
		"user_id", actor.String(),
		"tenant_id", tenantID.String(),
		"members_removed", removed,
	)
	return nil
}
