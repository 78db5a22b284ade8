//go:build integration

package tenant_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"warden/internal/tenant/models"
	"warden/internal/tenant/store/tenant"
	"warden/internal/tenant/store/tenantuser"
	id "warden/pkg/domain"
	"warden/pkg/platform/sentinel"
	"warden/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	tenants  *tenant.PostgresStore
	members  *tenantuser.PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.tenants = tenant.NewPostgres(s.postgres.DB)
	s.members = tenantuser.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.postgres.TruncateModuleTables(s.ctx))
}

func (s *PostgresStoreSuite) newTenant(domain string) *models.Tenant {
	t, err := models.NewTenant(id.NewTenantID(), domain, "Tenant "+domain, time.Now())
	s.Require().NoError(err)
	return t
}

func (s *PostgresStoreSuite) TestDomainUniqueness() {
	s.Require().NoError(s.tenants.CreateIfDomainAvailable(s.ctx, s.newTenant("acme.example.com")))
	err := s.tenants.CreateIfDomainAvailable(s.ctx, s.newTenant("ACME.example.com"))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	found, err := s.tenants.FindByDomain(s.ctx, "Acme.Example.com")
	s.Require().NoError(err)
	s.Equal("acme.example.com", found.Domain)
}

func (s *PostgresStoreSuite) TestUpdateAndDelete() {
	t := s.newTenant("beta.example.com")
	s.Require().NoError(s.tenants.CreateIfDomainAvailable(s.ctx, t))

	s.Require().NoError(t.Deactivate(time.Now()))
	t.Region = "eu-west-1"
	s.Require().NoError(s.tenants.Update(s.ctx, t))

	found, err := s.tenants.FindByID(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(models.TenantStatusInactive, found.Status)
	s.Equal("eu-west-1", found.Region)

	s.Require().NoError(s.tenants.Delete(s.ctx, t.ID))
	_, err = s.tenants.FindByID(s.ctx, t.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.tenants.Delete(s.ctx, t.ID), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestMembershipsCascadeWithTenant() {
	t := s.newTenant("gamma.example.com")
	s.Require().NoError(s.tenants.CreateIfDomainAvailable(s.ctx, t))
	userID := s.postgres.CreateTestUser(s.ctx, s.T())

	tu, err := models.NewTenantUser(id.NewTenantUserID(), t.ID, userID, models.TenantRoleAdmin, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.members.Create(s.ctx, tu))

	dup, err := models.NewTenantUser(id.NewTenantUserID(), t.ID, userID, models.TenantRoleUser, time.Now())
	s.Require().NoError(err)
	s.ErrorIs(s.members.Create(s.ctx, dup), sentinel.ErrAlreadyUsed)

	found, err := s.members.FindByTenantAndUser(s.ctx, t.ID, userID)
	s.Require().NoError(err)
	s.Equal(models.TenantRoleAdmin, found.Role)

	s.Require().NoError(s.tenants.Delete(s.ctx, t.ID))
	_, err = s.members.FindByID(s.ctx, tu.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
