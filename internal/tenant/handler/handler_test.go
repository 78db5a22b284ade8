package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/trace/noop"

	authmodels "warden/internal/auth/models"
	sessionstore "warden/internal/auth/store/session"
	userstore "warden/internal/auth/store/user"
	"warden/internal/authz"
	"warden/internal/tenant/models"
	"warden/internal/tenant/service"
	tenantstore "warden/internal/tenant/store/tenant"
	"warden/internal/tenant/store/tenantuser"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/httputil"
)

// bearerTable resolves bearers straight to fixed principals.
type bearerTable map[string]*authz.Principal

func (b bearerTable) Resolve(_ context.Context, bearer string) (*authmodels.User, *authmodels.Session, error) {
	p, ok := b[bearer]
	if !ok {
		return nil, nil, dErrors.New(dErrors.CodeSessionNotFound, "session not found")
	}
	return p.User, p.Session, nil
}

type HandlerSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	tenants  *tenantstore.InMemory
	members  *tenantuser.InMemory
	users    *userstore.InMemoryUserStore
	sessions *sessionstore.InMemorySessionStore
	bearers  bearerTable
	router   http.Handler
	tenant   *models.Tenant
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Now().UTC()
	s.tenants = tenantstore.NewInMemory()
	s.members = tenantuser.NewInMemory()
	s.users = userstore.New()
	s.sessions = sessionstore.New()
	s.bearers = bearerTable{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tenantSvc := service.NewTenantService(s.tenants, s.members, service.WithLogger(logger))
	memberSvc := service.NewMemberService(s.tenants, s.members, s.users, service.WithLogger(logger))
	resolver := service.NewResolver(s.tenants, s.members, s.sessions, service.WithLogger(logger))
	gate := authz.NewGate(s.bearers, resolver,
		authz.WithLogger(logger),
		authz.WithTracer(noop.NewTracerProvider().Tracer("test")),
	)

	r := chi.NewRouter()
	New(tenantSvc, memberSvc, resolver, logger).Register(r, gate)
	s.router = r

	var err error
	s.tenant, err = models.NewTenant(id.NewTenantID(), "acme.example", "Acme", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.tenants.CreateIfDomainAvailable(s.ctx, s.tenant))
}

// login registers a user with role and returns a bearer for it.
func (s *HandlerSuite) login(email string, role authmodels.GlobalRole) (string, *authmodels.User) {
	u, err := authmodels.NewUser(id.NewUserID(), email, role, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(s.ctx, u))
	token := "st_" + strings.ReplaceAll(email, "@", "_")
	sess, err := authmodels.NewSession(id.NewSessionID(), u.ID, token, false, authmodels.ClientContext{}, s.now, time.Hour)
	s.Require().NoError(err)
	s.Require().NoError(s.sessions.Create(s.ctx, sess))
	s.bearers[token] = &authz.Principal{User: u, Session: sess}
	return token, u
}

func (s *HandlerSuite) join(u *authmodels.User, role models.TenantRole) *models.TenantUser {
	tu, err := models.NewTenantUser(id.NewTenantUserID(), s.tenant.ID, u.ID, role, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.members.Create(s.ctx, tu))
	return tu
}

func (s *HandlerSuite) do(method, path, bearer, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var body httputil.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func (s *HandlerSuite) TestAdminTenants() {
	admin, _ := s.login("root@example.com", authmodels.RoleAdmin)
	user, _ := s.login("pat@example.com", authmodels.RoleUser)

	s.Run("Given no bearer When listing tenants Then 401", func() {
		rec := s.do(http.MethodGet, "/admin/tenants", "", "")
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("Given a USER When creating a tenant Then 403", func() {
		rec := s.do(http.MethodPost, "/admin/tenants", user, `{"domain":"beta.example","name":"Beta"}`)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	var created models.TenantResponse
	s.Run("Given an ADMIN When creating a tenant Then 201 with the normalized domain", func() {
		rec := s.do(http.MethodPost, "/admin/tenants", admin, `{"domain":"Beta.Example.","name":"Beta"}`)
		s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
		s.Equal("beta.example", created.Domain)
	})

	s.Run("Given a taken domain When creating Then 409", func() {
		rec := s.do(http.MethodPost, "/admin/tenants", admin, `{"domain":"acme.example","name":"Again"}`)
		s.Equal(http.StatusConflict, rec.Code)
	})

	s.Run("Given an ADMIN When listing Then both tenants are returned", func() {
		rec := s.do(http.MethodGet, "/admin/tenants", admin, "")
		s.Require().Equal(http.StatusOK, rec.Code)
		var res models.TenantListResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))
		s.Len(res.Tenants, 2)
	})

	s.Run("Given a tenant with members When getting details Then counts are included", func() {
		_, member := s.login("mia@example.com", authmodels.RoleUser)
		s.join(member, models.TenantRoleAdmin)

		rec := s.do(http.MethodGet, "/admin/tenants/"+s.tenant.ID.String(), admin, "")
		s.Require().Equal(http.StatusOK, rec.Code)
		var res TenantDetailsResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))
		s.Equal(1, res.MemberCount)
		s.Equal(1, res.AdminCount)
		s.Equal("acme.example", res.Domain)
	})

	s.Run("Given a malformed id When getting Then 400", func() {
		rec := s.do(http.MethodGet, "/admin/tenants/not-a-uuid", admin, "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("Given a rename When updating Then the new name is returned", func() {
		rec := s.do(http.MethodPut, "/admin/tenants/"+created.ID, admin, `{"name":"Beta Corp"}`)
		s.Require().Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), "Beta Corp")
	})

	s.Run("Given an existing tenant When deleting Then 204 and it is gone", func() {
		rec := s.do(http.MethodDelete, "/admin/tenants/"+created.ID, admin, "")
		s.Equal(http.StatusNoContent, rec.Code)

		rec = s.do(http.MethodGet, "/admin/tenants/"+created.ID, admin, "")
		s.Equal(http.StatusNotFound, rec.Code)
		s.Equal(string(dErrors.CodeTenantNotFound), s.errorCode(rec))
	})
}

func (s *HandlerSuite) TestMembership() {
	memberBearer, member := s.login("lee@example.com", authmodels.RoleUser)
	row := s.join(member, models.TenantRoleUser)
	outsider, _ := s.login("out@example.com", authmodels.RoleUser)
	superAdmin, _ := s.login("boss@example.com", authmodels.RoleSuperAdmin)

	s.Run("Given a member When reading membership by path Then the persisted row is returned", func() {
		rec := s.do(http.MethodGet, "/tenants/"+s.tenant.ID.String()+"/membership", memberBearer, "")
		s.Require().Equal(http.StatusOK, rec.Code)
		var res models.MembershipResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))
		s.Equal(row.ID.String(), res.ID)
		s.False(res.Synthetic)
	})

	s.Run("Given a non-member USER When reading membership Then 404 tenant user not found", func() {
		rec := s.do(http.MethodGet, "/tenants/"+s.tenant.ID.String()+"/membership", outsider, "")
		s.Equal(string(dErrors.CodeTenantUserNotFound), s.errorCode(rec))
	})

	s.Run("Given a SUPER_ADMIN without a row When reading membership Then a synthetic ADMIN is returned", func() {
		rec := s.do(http.MethodGet, "/tenants/"+s.tenant.ID.String()+"/membership", superAdmin, "")
		s.Require().Equal(http.StatusOK, rec.Code)
		var res models.MembershipResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))
		s.True(res.Synthetic)
		s.Equal(models.TenantRoleAdmin, res.Role)

		rows, err := s.members.ListByTenant(s.ctx, s.tenant.ID)
		s.Require().NoError(err)
		s.Len(rows, 1, "synthetic memberships are never stored")
	})

	s.Run("Given the tenant domain header When reading membership Then the domain route resolves", func() {
		rec := s.do(http.MethodGet, "/tenant/membership", memberBearer, "", authz.TenantDomainHeader, "ACME.example")
		s.Require().Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), row.ID.String())
	})
}

func (s *HandlerSuite) TestMembers() {
	ownerBearer, owner := s.login("owner@example.com", authmodels.RoleUser)
	s.join(owner, models.TenantRoleAdmin)
	plainBearer, plain := s.login("plain@example.com", authmodels.RoleUser)
	plainRow := s.join(plain, models.TenantRoleUser)
	_, _ = s.login("new@example.com", authmodels.RoleUser)
	base := "/tenants/" + s.tenant.ID.String() + "/members"

	s.Run("Given a tenant USER When listing members Then 403", func() {
		rec := s.do(http.MethodGet, base, plainBearer, "")
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("Given a tenant ADMIN When adding a member by email Then 201", func() {
		rec := s.do(http.MethodPost, base, ownerBearer, `{"email":"New@Example.com","role":"user"}`)
		s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
		var res models.MemberResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))
		s.Equal(models.TenantRoleUser, res.Role)
	})

	s.Run("Given a tenant ADMIN When listing Then all three members are returned", func() {
		rec := s.do(http.MethodGet, base, ownerBearer, "")
		s.Require().Equal(http.StatusOK, rec.Code)
		var res models.MemberListResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))
		s.Len(res.Members, 3)
	})

	s.Run("Given a tenant ADMIN When promoting a member Then the role changes", func() {
		rec := s.do(http.MethodPatch, base+"/"+plainRow.ID.String(), ownerBearer, `{"role":"ADMIN"}`)
		s.Require().Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"role":"ADMIN"`)
	})

	s.Run("Given a malformed member id When patching Then 400", func() {
		rec := s.do(http.MethodPatch, base+"/nope", ownerBearer, `{"role":"ADMIN"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestSelectTenant() {
	bearer, u := s.login("sel@example.com", authmodels.RoleUser)
	row := s.join(u, models.TenantRoleUser)

	s.Run("Given a member When selecting by domain Then the session records the tenant", func() {
		rec := s.do(http.MethodPost, "/me/tenant", bearer, `{"domain":"acme.example"}`)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		var res models.SelectTenantResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &res))
		s.Equal(s.tenant.ID.String(), res.TenantID)
		s.Equal(row.ID.String(), res.TenantUserID)

		stored, err := s.sessions.FindByToken(s.ctx, bearer)
		s.Require().NoError(err)
		s.Require().NotNil(stored.TenantID)
		s.Equal(s.tenant.ID, *stored.TenantID)
	})

	s.Run("Given a malformed tenant id When selecting Then 400", func() {
		rec := s.do(http.MethodPost, "/me/tenant", bearer, `{"tenant_id":"xyz"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("Given no bearer When selecting Then 401", func() {
		rec := s.do(http.MethodPost, "/me/tenant", "", `{"domain":"acme.example"}`)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}
