package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warden/internal/auth/models"
	id "warden/pkg/domain"
	"warden/pkg/platform/sentinel"

	"github.com/stretchr/testify/suite"
)

type sessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	FindByToken(ctx context.Context, accessToken string) (*models.Session, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
	DeleteByUser(ctx context.Context, userID id.UserID) (int, error)
	Execute(ctx context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error)
}

// storeContractSuite runs the same behavioural checks against every backend.
// Embedding suites set store and the id factories in their SetupTest.
type storeContractSuite struct {
	suite.Suite
	ctx         context.Context
	store       sessionStore
	newUserID   func() id.UserID
	newTenantID func() id.TenantID
}

func (s *storeContractSuite) newSession(userID id.UserID, token string, createdAt time.Time) *models.Session {
	session, err := models.NewSession(id.NewSessionID(), userID, token, false, models.ClientContext{
		IP:      "203.0.113.7",
		Browser: "Firefox",
		OS:      "Linux",
	}, createdAt, time.Hour)
	s.Require().NoError(err)
	return session
}

func (s *storeContractSuite) TestCreateAndFind() {
	session := s.newSession(s.newUserID(), "st_create", time.Now())
	s.Require().NoError(s.store.Create(s.ctx, session))

	byID, err := s.store.FindByID(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(session.AccessToken, byID.AccessToken)
	s.Equal(session.UserID, byID.UserID)
	s.Equal("Firefox on Linux", byID.Client.DisplayName())
	s.WithinDuration(session.ExpiresAt, byID.ExpiresAt, time.Millisecond)

	byToken, err := s.store.FindByToken(s.ctx, "st_create")
	s.Require().NoError(err)
	s.Equal(session.ID, byToken.ID)
}

func (s *storeContractSuite) TestCreateDuplicateToken() {
	userID := s.newUserID()
	s.Require().NoError(s.store.Create(s.ctx, s.newSession(userID, "st_dup", time.Now())))

	err := s.store.Create(s.ctx, s.newSession(userID, "st_dup", time.Now()))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *storeContractSuite) TestListByUserReturnsEverySession() {
	userID := s.newUserID()
	start := time.Now()
	const total = 150
	for i := range total {
		s.Require().NoError(s.store.Create(s.ctx, s.newSession(userID, fmt.Sprintf("st_many_%03d", i), start.Add(time.Duration(i)*time.Second))))
	}

	sessions, err := s.store.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Len(sessions, total)
	s.Equal("st_many_149", sessions[0].AccessToken)
}

func (s *storeContractSuite) TestFindNotFound() {
	_, err := s.store.FindByID(s.ctx, id.NewSessionID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByToken(s.ctx, "st_missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeContractSuite) TestListByUserNewestFirst() {
	userID := s.newUserID()
	other := s.newUserID()
	now := time.Now()
	older := s.newSession(userID, "st_older", now.Add(-time.Minute))
	newer := s.newSession(userID, "st_newer", now)
	s.Require().NoError(s.store.Create(s.ctx, older))
	s.Require().NoError(s.store.Create(s.ctx, newer))
	s.Require().NoError(s.store.Create(s.ctx, s.newSession(other, "st_other", now)))

	sessions, err := s.store.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(sessions, 2)
	s.Equal(newer.ID, sessions[0].ID)
	s.Equal(older.ID, sessions[1].ID)

	none, err := s.store.ListByUser(s.ctx, s.newUserID())
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *storeContractSuite) TestDelete() {
	session := s.newSession(s.newUserID(), "st_delete", time.Now())
	s.Require().NoError(s.store.Create(s.ctx, session))

	s.Require().NoError(s.store.Delete(s.ctx, session.ID))

	_, err := s.store.FindByID(s.ctx, session.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByToken(s.ctx, "st_delete")
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(s.ctx, session.ID), sentinel.ErrNotFound)
}

func (s *storeContractSuite) TestDeleteByUser() {
	userID := s.newUserID()
	other := s.newUserID()
	s.Require().NoError(s.store.Create(s.ctx, s.newSession(userID, "st_a", time.Now())))
	s.Require().NoError(s.store.Create(s.ctx, s.newSession(userID, "st_b", time.Now())))
	kept := s.newSession(other, "st_kept", time.Now())
	s.Require().NoError(s.store.Create(s.ctx, kept))

	deleted, err := s.store.DeleteByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(2, deleted)

	_, err = s.store.FindByToken(s.ctx, "st_a")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByID(s.ctx, kept.ID)
	s.NoError(err)

	deleted, err = s.store.DeleteByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Zero(deleted)
}

func (s *storeContractSuite) TestExecute() {
	s.Run("Given validate fails When executing Then the session is unchanged", func() {
		session := s.newSession(s.newUserID(), "st_exec_fail", time.Now())
		session.OTPNeeded = true
		s.Require().NoError(s.store.Create(s.ctx, session))
		boom := errors.New("not pending")

		_, err := s.store.Execute(s.ctx, session.ID,
			func(*models.Session) error { return boom },
			func(sess *models.Session) { sess.MarkOTPVerified(time.Now()) },
		)
		s.ErrorIs(err, boom)

		found, err := s.store.FindByID(s.ctx, session.ID)
		s.Require().NoError(err)
		s.True(found.OTPNeeded)
	})

	s.Run("Given a pending session When OTP is verified Then the flag and challenge clear together", func() {
		session := s.newSession(s.newUserID(), "st_exec_ok", time.Now())
		session.OTPNeeded = true
		session.IssueOTPChallenge(models.NewChallenge("123456", time.Now(), 10*time.Minute))
		s.Require().NoError(s.store.Create(s.ctx, session))

		updated, err := s.store.Execute(s.ctx, session.ID,
			func(*models.Session) error { return nil },
			func(sess *models.Session) { sess.MarkOTPVerified(time.Now()) },
		)
		s.Require().NoError(err)
		s.False(updated.OTPNeeded)

		found, err := s.store.FindByID(s.ctx, session.ID)
		s.Require().NoError(err)
		s.False(found.OTPNeeded)
		s.Nil(found.OTPChallenge)
		s.NotNil(found.OTPVerifiedAt)
		s.Equal(models.OTPStateSatisfied, found.OTPState())
	})

	s.Run("Given a tenant selection When executing Then tenant ids are persisted", func() {
		session := s.newSession(s.newUserID(), "st_exec_tenant", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, session))
		tenantID := s.newTenantID()

		_, err := s.store.Execute(s.ctx, session.ID,
			func(*models.Session) error { return nil },
			func(sess *models.Session) { sess.SelectTenant(tenantID, nil) },
		)
		s.Require().NoError(err)

		found, err := s.store.FindByID(s.ctx, session.ID)
		s.Require().NoError(err)
		s.Require().NotNil(found.TenantID)
		s.Equal(tenantID, *found.TenantID)
		s.Nil(found.TenantUserID)
	})

	s.Run("Given a token rotation When executing Then only the new token resolves", func() {
		session := s.newSession(s.newUserID(), "st_before_rotate", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, session))

		_, err := s.store.Execute(s.ctx, session.ID,
			func(*models.Session) error { return nil },
			func(sess *models.Session) { sess.Rotate("st_after_rotate", time.Now(), time.Hour) },
		)
		s.Require().NoError(err)

		_, err = s.store.FindByToken(s.ctx, "st_before_rotate")
		s.ErrorIs(err, sentinel.ErrNotFound)
		found, err := s.store.FindByToken(s.ctx, "st_after_rotate")
		s.Require().NoError(err)
		s.Equal(session.ID, found.ID)
	})

	s.Run("Given a missing session When executing Then not found", func() {
		_, err := s.store.Execute(s.ctx, id.NewSessionID(),
			func(*models.Session) error { return nil },
			func(*models.Session) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
