package tenantuser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"warden/internal/tenant/models"
	id "warden/pkg/domain"
	"warden/pkg/platform/sentinel"
	"warden/pkg/testutil"
)

type InMemorySuite struct {
	suite.Suite
	store    *InMemory
	ctx      context.Context
	tenantID id.TenantID
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.tenantID = id.NewTenantID()
}

func (s *InMemorySuite) member(userID id.UserID, role models.TenantRole, at time.Time) *models.TenantUser {
	tu, err := models.NewTenantUser(id.NewTenantUserID(), s.tenantID, userID, role, at)
	s.Require().NoError(err)
	return tu
}

func (s *InMemorySuite) TestCreateAndFind() {
	tu := s.member(id.NewUserID(), models.TenantRoleUser, time.Now())
	s.Require().NoError(s.store.Create(s.ctx, tu))

	byPair, err := s.store.FindByTenantAndUser(s.ctx, s.tenantID, tu.UserID)
	s.Require().NoError(err)
	s.Equal(tu.ID, byPair.ID)

	byID, err := s.store.FindByID(s.ctx, tu.ID)
	s.Require().NoError(err)
	s.Equal(models.TenantRoleUser, byID.Role)
}

func (s *InMemorySuite) TestAtMostOneRowPerTenantAndUser() {
	userID := id.NewUserID()
	s.Require().NoError(s.store.Create(s.ctx, s.member(userID, models.TenantRoleUser, time.Now())))

	err := s.store.Create(s.ctx, s.member(userID, models.TenantRoleAdmin, time.Now()))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *InMemorySuite) TestNotFound() {
	_, err := s.store.FindByTenantAndUser(s.ctx, s.tenantID, id.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByID(s.ctx, id.NewTenantUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Update(s.ctx, s.member(id.NewUserID(), models.TenantRoleUser, time.Now())), sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestUpdateChangesRoleAndStatusOnly() {
	tu := s.member(id.NewUserID(), models.TenantRoleUser, time.Now())
	s.Require().NoError(s.store.Create(s.ctx, tu))

	changed := *tu
	changed.Role = models.TenantRoleAdmin
	changed.Status = models.MemberStatusInactive
	changed.UserID = id.NewUserID()
	s.Require().NoError(s.store.Update(s.ctx, &changed))

	found, err := s.store.FindByID(s.ctx, tu.ID)
	s.Require().NoError(err)
	s.Equal(models.TenantRoleAdmin, found.Role)
	s.Equal(models.MemberStatusInactive, found.Status)
	s.Equal(tu.UserID, found.UserID)
}

func (s *InMemorySuite) TestListAndDeleteByTenant() {
	now := time.Now()
	first := s.member(id.NewUserID(), models.TenantRoleAdmin, now.Add(-time.Hour))
	second := s.member(id.NewUserID(), models.TenantRoleUser, now)
	s.Require().NoError(s.store.Create(s.ctx, second))
	s.Require().NoError(s.store.Create(s.ctx, first))

	other, err := models.NewTenantUser(id.NewTenantUserID(), id.NewTenantID(), id.NewUserID(), models.TenantRoleUser, now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, other))

	list, err := s.store.ListByTenant(s.ctx, s.tenantID)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(first.ID, list[0].ID)

	deleted, err := s.store.DeleteByTenant(s.ctx, s.tenantID)
	s.Require().NoError(err)
	s.Equal(2, deleted)

	_, err = s.store.FindByID(s.ctx, other.ID)
	s.NoError(err)
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) TestConcurrentJoinsKeepOneRow() {
	userID := testutil.AliceID
	res := testutil.RunConcurrent(16, func(int) error {
		return s.store.Create(s.ctx, testutil.NewMember(s.tenantID, userID, models.TenantRoleUser))
	})

	s.Equal(int32(1), res.Successes)
	s.Equal(int32(15), res.Conflicts)
	members, err := s.store.ListByTenant(s.ctx, s.tenantID)
	s.Require().NoError(err)
	s.Len(members, 1)
}
