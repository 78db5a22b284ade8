package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmodels "warden/internal/auth/models"
	"warden/internal/authz"
	"warden/internal/tenant/models"
	"warden/internal/tenant/readmodels"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/httputil"
	"warden/pkg/requestcontext"
)

// MemberIDParam is the chi URL parameter naming a membership row.
const MemberIDParam = "memberId"

// TenantService defines the tenant administration operations. Callers are
// global ADMINs admitted by the gate.
type TenantService interface {
	CreateTenant(ctx context.Context, actor id.UserID, req *models.CreateTenantRequest) (*models.Tenant, error)
	GetTenantDetails(ctx context.Context, tenantID id.TenantID) (*readmodels.TenantDetails, error)
	ListTenants(ctx context.Context) ([]*models.Tenant, error)
	UpdateTenant(ctx context.Context, actor id.UserID, tenantID id.TenantID, req *models.UpdateTenantRequest) (*models.Tenant, error)
	DeleteTenant(ctx context.Context, actor id.UserID, tenantID id.TenantID) error
}

// MemberService manages persisted memberships of the tenant in scope.
type MemberService interface {
	AddMember(ctx context.Context, actor id.UserID, tenantID id.TenantID, req *models.AddMemberRequest) (*models.TenantUser, error)
	UpdateMember(ctx context.Context, actor id.UserID, tenantID id.TenantID, memberID id.TenantUserID, req *models.UpdateMemberRequest) (*models.TenantUser, error)
	ListMembers(ctx context.Context, tenantID id.TenantID) ([]*models.TenantUser, error)
}

// Selector makes a tenant the active one on the caller's session.
type Selector interface {
	SelectTenant(ctx context.Context, session *authmodels.Session, user *authmodels.User, ref models.TenantRef) (*models.Tenant, models.Membership, error)
}

// Gate supplies the authorization middleware the routes are mounted behind.
type Gate interface {
	Require(role authmodels.GlobalRole) func(http.Handler) http.Handler
	RequireTenant(role authmodels.GlobalRole, tenantRole models.TenantRole, method models.RefMethod) func(http.Handler) http.Handler
}

type Handler struct {
	tenants  TenantService
	members  MemberService
	selector Selector
	logger   *slog.Logger
}

func New(tenants TenantService, members MemberService, selector Selector, logger *slog.Logger) *Handler {
	return &Handler{tenants: tenants, members: members, selector: selector, logger: logger}
}

// Register mounts every tenant route behind its gate.
func (h *Handler) Register(r chi.Router, g Gate) {
	tenantPath := "/{" + authz.TenantIDParam + "}"

	r.Route("/admin/tenants", func(r chi.Router) {
		r.Use(g.Require(authmodels.RoleAdmin))
		r.Post("/", h.HandleCreateTenant)
		r.Get("/", h.HandleListTenants)
		r.Get(tenantPath, h.HandleGetTenant)
		r.Put(tenantPath, h.HandleUpdateTenant)
		r.Delete(tenantPath, h.HandleDeleteTenant)
	})

	r.With(g.Require(authmodels.RoleUser)).Post("/me/tenant", h.HandleSelectTenant)

	r.Route("/tenants"+tenantPath, func(r chi.Router) {
		r.With(g.RequireTenant(authmodels.RoleUser, models.TenantRoleUser, models.RefByPath)).
			Get("/membership", h.HandleMembership)
		r.Group(func(r chi.Router) {
			r.Use(g.RequireTenant(authmodels.RoleUser, models.TenantRoleAdmin, models.RefByPath))
			r.Get("/members", h.HandleListMembers)
			r.Post("/members", h.HandleAddMember)
			r.Patch("/members/{"+MemberIDParam+"}", h.HandleUpdateMember)
		})
	})

	r.With(g.RequireTenant(authmodels.RoleUser, models.TenantRoleUser, models.RefByDomain)).
		Get("/tenant/membership", h.HandleMembership)
}

func (h *Handler) HandleCreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateTenantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	t, err := h.tenants.CreateTenant(ctx, actorID(ctx), req)
	if err != nil {
		h.logFailure(ctx, "failed to create tenant", err, requestID, "domain", req.Domain)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "tenant created",
		"request_id", requestID,
		"tenant_id", t.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, models.NewTenantResponse(t))
}

func (h *Handler) HandleListTenants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenants, err := h.tenants.ListTenants(ctx)
	if err != nil {
		h.logFailure(ctx, "failed to list tenants", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTenantListResponse(tenants))
}

func (h *Handler) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, ok := h.parseTenantID(w, r, requestID)
	if !ok {
		return
	}

	details, err := h.tenants.GetTenantDetails(ctx, tenantID)
	if err != nil {
		h.logFailure(ctx, "failed to get tenant", err, requestID, "tenant_id", tenantID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTenantDetailsResponse(details))
}

func (h *Handler) HandleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, ok := h.parseTenantID(w, r, requestID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateTenantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	t, err := h.tenants.UpdateTenant(ctx, actorID(ctx), tenantID, req)
	if err != nil {
		h.logFailure(ctx, "failed to update tenant", err, requestID, "tenant_id", tenantID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewTenantResponse(t))
}

func (h *Handler) HandleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, ok := h.parseTenantID(w, r, requestID)
	if !ok {
		return
	}

	if err := h.tenants.DeleteTenant(ctx, actorID(ctx), tenantID); err != nil {
		h.logFailure(ctx, "failed to delete tenant", err, requestID, "tenant_id", tenantID.String())
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "tenant deleted",
		"request_id", requestID,
		"tenant_id", tenantID.String(),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMembership returns the caller's effective membership in the tenant
// the gate resolved, synthetic or persisted.
func (h *Handler) HandleMembership(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewMembershipResponse(scope.Membership))
}

func (h *Handler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	members, err := h.members.ListMembers(ctx, scope.Tenant.ID)
	if err != nil {
		h.logFailure(ctx, "failed to list members", err, requestID, "tenant_id", scope.Tenant.ID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toMemberListResponse(members))
}

func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.AddMemberRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tu, err := h.members.AddMember(ctx, actorID(ctx), scope.Tenant.ID, req)
	if err != nil {
		h.logFailure(ctx, "failed to add member", err, requestID, "tenant_id", scope.Tenant.ID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.NewMemberResponse(tu))
}

func (h *Handler) HandleUpdateMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	memberID, err := id.ParseTenantUserID(strings.TrimSpace(chi.URLParam(r, MemberIDParam)))
	if err != nil {
		h.logger.WarnContext(ctx, "invalid member id",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid member id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateMemberRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tu, err := h.members.UpdateMember(ctx, actorID(ctx), scope.Tenant.ID, memberID, req)
	if err != nil {
		h.logFailure(ctx, "failed to update member", err, requestID, "tenant_id", scope.Tenant.ID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewMemberResponse(tu))
}

// HandleSelectTenant implements POST /me/tenant.
//
// Input: { "tenant_id": "..." } or { "domain": "acme.example" }
func (h *Handler) HandleSelectTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	user := authz.UserFrom(ctx)
	session := authz.SessionFrom(ctx)
	if user == nil || session == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUserNotAuthenticated, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.SelectTenantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	ref, err := req.Ref()
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return
	}

	t, membership, err := h.selector.SelectTenant(ctx, session, user, ref)
	if err != nil {
		h.logFailure(ctx, "failed to select tenant", err, requestID, "user_id", user.ID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSelectTenantResponse(t, membership))
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (authz.TenantScope, bool) {
	scope, ok := authz.TenantScopeFrom(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "tenant route reached without tenant scope",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "tenant scope missing"))
		return authz.TenantScope{}, false
	}
	return scope, true
}

func (h *Handler) parseTenantID(w http.ResponseWriter, r *http.Request, requestID string) (id.TenantID, bool) {
	tenantID, err := id.ParseTenantID(strings.TrimSpace(chi.URLParam(r, authz.TenantIDParam)))
	if err != nil {
		h.logger.WarnContext(r.Context(), "invalid tenant id",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return id.TenantID{}, false
	}
	return tenantID, true
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error, requestID string, attrs ...any) {
	attrs = append([]any{"error", err, "request_id", requestID}, attrs...)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}

func actorID(ctx context.Context) id.UserID {
	if u := authz.UserFrom(ctx); u != nil {
		return u.ID
	}
	return id.UserID{}
}
