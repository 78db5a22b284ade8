package session

import (
	"context"
	"testing"
	"time"

	"warden/internal/auth/models"
	id "warden/pkg/domain"
	"warden/pkg/testutil"

	"github.com/stretchr/testify/suite"
)

type InMemorySessionStoreSuite struct {
	storeContractSuite
	memory *InMemorySessionStore
}

func (s *InMemorySessionStoreSuite) SetupTest() {
	s.memory = New()
	s.ctx = context.Background()
	s.store = s.memory
	s.newUserID = id.NewUserID
	s.newTenantID = id.NewTenantID
}

func (s *InMemorySessionStoreSuite) TestReturnedValuesDoNotAliasStoredState() {
	session := s.newSession(id.NewUserID(), "st_alias", time.Now())
	s.Require().NoError(s.memory.Create(s.ctx, session))

	session.OTPNeeded = true
	found, err := s.memory.FindByID(s.ctx, session.ID)
	s.Require().NoError(err)
	s.False(found.OTPNeeded)
}

func (s *InMemorySessionStoreSuite) TestTenantSelectionSurvivesRoundTrip() {
	tenantUserID := id.NewTenantUserID()
	session := testutil.NewSession(
		testutil.WithToken("st_tenant"),
		testutil.InTenant(testutil.AcmeID, &tenantUserID),
		func(s *models.Session) { s.OTPNeeded = true },
	)
	s.Require().NoError(s.memory.Create(s.ctx, session))

	found, err := s.memory.FindByToken(s.ctx, "st_tenant")
	s.Require().NoError(err)
	s.True(found.OTPNeeded)
	s.Require().NotNil(found.TenantID)
	s.Equal(testutil.AcmeID, *found.TenantID)
	s.Require().NotNil(found.TenantUserID)
	s.Equal(tenantUserID, *found.TenantUserID)
}

func TestInMemorySessionStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemorySessionStoreSuite))
}
