package service

import (
	"context"
	"errors"

	authmodels "warden/internal/auth/models"
	"warden/internal/tenant/models"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/middleware/requesttime"
	"warden/pkg/platform/sentinel"
)

// MemberService manages persisted memberships. Synthetic memberships never
// reach it: every method works on rows looked up by id or created here.
type MemberService struct {
	tenants TenantStore
	members TenantUserStore
	users   UserDirectory
	deps
}

func NewMemberService(tenants TenantStore, members TenantUserStore, users UserDirectory, opts ...Option) *MemberService {
	return &MemberService{
		tenants: tenants,
		members: members,
		users:   users,
		deps:    newDeps(opts),
	}
}

// AddMember attaches an existing user, found by email, to the tenant.
func (s *MemberService) AddMember(ctx context.Context, actor id.UserID, tenantID id.TenantID, req *models.AddMemberRequest) (*models.TenantUser, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if _, err := s.tenants.FindByID(ctx, tenantID); err != nil {
		return nil, wrapTenantErr(err, "failed to load tenant")
	}

	user, err := s.users.FindByEmail(ctx, authmodels.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUserNotFound, "no user with that email")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	tu, err := models.NewTenantUser(id.NewTenantUserID(), tenantID, user.ID, req.Role, requesttime.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.members.Create(ctx, tu); err != nil {
		if isDuplicate(err) {
			return nil, dErrors.New(dErrors.CodeConflict, "user is already a member of this tenant")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add member")
	}

	s.audit.Log(ctx, string(audit.EventMemberAdded),
		"user_id", actor.String(),
		"tenant_id", tenantID.String(),
		"member_user_id", user.ID.String(),
		"role", string(tu.Role),
	)
	return tu, nil
}

// UpdateMember changes role and/or status of a membership in the given tenant.
// A member id from another tenant is reported as not found.
func (s *MemberService) UpdateMember(ctx context.Context, actor id.UserID, tenantID id.TenantID, memberID id.TenantUserID, req *models.UpdateMemberRequest) (*models.TenantUser, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	tu, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return nil, wrapMemberErr(err, "failed to load member")
	}
	if tu.TenantID != tenantID {
		return nil, dErrors.New(dErrors.CodeTenantUserNotFound, "tenant member not found")
	}

	if req.Role != nil {
		if !req.Role.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid tenant role")
		}
		tu.Role = *req.Role
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid member status")
		}
		tu.Status = *req.Status
	}
	tu.UpdatedAt = requesttime.Now(ctx)

	if err := s.members.Update(ctx, tu); err != nil {
		return nil, wrapMemberErr(err, "failed to update member")
	}

	s.audit.Log(ctx, string(audit.EventMemberUpdated),
		"user_id", actor.String(),
		"tenant_id", tenantID.String(),
		"member_user_id", tu.UserID.String(),
		"role", string(tu.Role),
		"status", string(tu.Status),
	)
	return tu, nil
}

func (s *MemberService) ListMembers(ctx context.Context, tenantID id.TenantID) ([]*models.TenantUser, error) {
	if err := requireTenantID(tenantID); err != nil {
		return nil, err
	}
	members, err := s.members.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list members")
	}
	return members, nil
}
