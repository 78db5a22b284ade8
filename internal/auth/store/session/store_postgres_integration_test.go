//go:build integration

package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"warden/internal/auth/models"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/testutil/containers"

	"github.com/stretchr/testify/suite"
)

type PostgresStoreSuite struct {
	storeContractSuite
	postgres *containers.PostgresContainer
	pg       *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.pg = NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.postgres.TruncateModuleTables(s.ctx))
	s.store = s.pg
	s.newUserID = func() id.UserID {
		return s.postgres.CreateTestUser(s.ctx, s.T())
	}
	s.newTenantID = func() id.TenantID {
		return s.postgres.CreateTestTenant(s.ctx, s.T())
	}
}

// TestConcurrentOTPVerify verifies that only one of many concurrent verifications
// flips a pending session.
func (s *PostgresStoreSuite) TestConcurrentOTPVerify() {
	sess := s.newSession(s.newUserID(), "st_concurrent", time.Now())
	sess.OTPNeeded = true
	sess.IssueOTPChallenge(models.NewChallenge("123456", time.Now(), 10*time.Minute))
	s.Require().NoError(s.pg.Create(s.ctx, sess))

	const goroutines = 25
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		rejected  atomic.Int32
	)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.pg.Execute(s.ctx, sess.ID,
				func(sess *models.Session) error {
					if !sess.IsOTPPending() {
						return dErrors.New(dErrors.CodeOtpNotNeeded, "otp not needed")
					}
					return nil
				},
				func(sess *models.Session) {
					sess.MarkOTPVerified(time.Now())
				},
			)
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeOtpNotNeeded):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), rejected.Load())
}

func (s *PostgresStoreSuite) TestTenantDeletionClearsSessionSelection() {
	tenantID := s.postgres.CreateTestTenant(s.ctx, s.T())
	sess := s.newSession(s.newUserID(), "st_tenant_fk", time.Now())
	s.Require().NoError(s.pg.Create(s.ctx, sess))

	_, err := s.pg.Execute(s.ctx, sess.ID,
		func(*models.Session) error { return nil },
		func(sess *models.Session) { sess.SelectTenant(tenantID, nil) },
	)
	s.Require().NoError(err)

	_, err = s.postgres.Exec(s.ctx, `DELETE FROM tenants WHERE id = $1`, tenantID.String())
	s.Require().NoError(err)

	found, err := s.pg.FindByID(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Nil(found.TenantID)
}

func (s *PostgresStoreSuite) TestDeleteExpiredSessions() {
	userID := s.newUserID()
	stale := s.newSession(userID, "st_stale", time.Now().Add(-3*time.Hour))
	live := s.newSession(userID, "st_live", time.Now())
	s.Require().NoError(s.pg.Create(s.ctx, stale))
	s.Require().NoError(s.pg.Create(s.ctx, live))

	deleted, err := s.pg.DeleteExpiredSessions(s.ctx, time.Now().Add(-time.Hour))
	s.Require().NoError(err)
	s.Equal(1, deleted)

	remaining, err := s.pg.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(remaining, 1)
	s.Equal(live.ID, remaining[0].ID)
}
