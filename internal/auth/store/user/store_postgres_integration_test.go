//go:build integration

package user_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"warden/internal/auth/models"
	"warden/internal/auth/store/user"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/sentinel"
	"warden/pkg/testutil/containers"

	"github.com/stretchr/testify/suite"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *user.PostgresStore
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
	s.store = user.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.postgres.TruncateModuleTables(s.ctx))
}

func (s *PostgresStoreSuite) newUser(email string) *models.User {
	u, err := models.NewUser(id.NewUserID(), email, models.RoleUser, time.Now())
	s.Require().NoError(err)
	u.PasswordHash = "$2a$10$hash"
	return u
}

func (s *PostgresStoreSuite) TestCreateFindAndSave() {
	u := s.newUser("pg@example.com")
	u.Phone = "+15551234567"
	s.Require().NoError(s.store.Create(s.ctx, u))

	found, err := s.store.FindByEmail(s.ctx, "pg@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, found.ID)
	s.Equal("+15551234567", found.Phone)
	s.Nil(found.OTPStatusChange)

	found.PasswordReset = models.NewChallenge("654321", time.Now(), 15*time.Minute)
	s.Require().NoError(s.store.Save(s.ctx, found))

	again, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Require().NotNil(again.PasswordReset)
	s.Equal("654321", again.PasswordReset.Token)
}

func (s *PostgresStoreSuite) TestDuplicateEmail() {
	s.Require().NoError(s.store.Create(s.ctx, s.newUser("dup@example.com")))
	s.ErrorIs(s.store.Create(s.ctx, s.newUser("dup@example.com")), sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestNotFound() {
	_, err := s.store.FindByID(s.ctx, id.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Save(s.ctx, s.newUser("ghost@example.com")), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestExternalAccounts() {
	u := s.newUser("ext@example.com")
	s.Require().NoError(s.store.Create(s.ctx, u))
	acct := &models.ExternalAccount{Provider: "google", Subject: "abc", UserID: u.ID, CreatedAt: time.Now()}

	s.Require().NoError(s.store.CreateExternalAccount(s.ctx, acct))
	s.ErrorIs(s.store.CreateExternalAccount(s.ctx, acct), sentinel.ErrAlreadyUsed)

	found, err := s.store.FindExternalAccount(s.ctx, "google", "abc")
	s.Require().NoError(err)
	s.Equal(u.ID, found.UserID)
}

// TestConcurrentStatusChangeAppliesOnce verifies the row lock serialises OTP status changes.
func (s *PostgresStoreSuite) TestConcurrentStatusChangeAppliesOnce() {
	u := s.newUser("race@example.com")
	u.OTPStatusChange = models.NewChallenge("111111", time.Now(), 10*time.Minute)
	s.Require().NoError(s.store.Create(s.ctx, u))

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, u.ID,
				func(u *models.User) error {
					if u.OTPStatusChange == nil {
						return dErrors.New(dErrors.CodeInvalidOtp, "no pending change")
					}
					return nil
				},
				func(u *models.User) {
					u.OTPEnabled = true
					u.OTPStatusChange = nil
				},
			)
			if err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	found, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.True(found.OTPEnabled)
	s.Nil(found.OTPStatusChange)
}
