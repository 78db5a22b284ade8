package user

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"warden/internal/auth/models"
	id "warden/pkg/domain"
	"warden/pkg/platform/sentinel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemoryUserStore
	ctx   context.Context
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func (s *InMemoryUserStoreSuite) newUser(email string) *models.User {
	user, err := models.NewUser(id.NewUserID(), email, models.RoleUser, time.Now())
	s.Require().NoError(err)
	return user
}

func (s *InMemoryUserStoreSuite) TestCreateAndFind() {
	user := s.newUser("jane.doe@example.com")
	require.NoError(s.T(), s.store.Create(s.ctx, user))

	foundByID, err := s.store.FindByID(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user, foundByID)

	foundByEmail, err := s.store.FindByEmail(s.ctx, user.Email)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID, foundByEmail.ID)
}

func (s *InMemoryUserStoreSuite) TestCreateDuplicateEmail() {
	require.NoError(s.T(), s.store.Create(s.ctx, s.newUser("dup@example.com")))

	err := s.store.Create(s.ctx, s.newUser("dup@example.com"))
	assert.ErrorIs(s.T(), err, sentinel.ErrAlreadyUsed)
}

func (s *InMemoryUserStoreSuite) TestFindNotFound() {
	_, err := s.store.FindByID(s.ctx, id.NewUserID())
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)

	_, err = s.store.FindByEmail(s.ctx, "missing@example.com")
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestReturnedValuesDoNotAliasStoredState() {
	user := s.newUser("alias@example.com")
	require.NoError(s.T(), s.store.Create(s.ctx, user))

	user.DisplayName = "changed after create"
	found, err := s.store.FindByID(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), found.DisplayName)

	found.OTPEnabled = true
	again, err := s.store.FindByID(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.False(s.T(), again.OTPEnabled)
}

func (s *InMemoryUserStoreSuite) TestSave() {
	s.Run("Given an existing user When the email changes Then the old email no longer resolves", func() {
		user := s.newUser("old@example.com")
		require.NoError(s.T(), s.store.Create(s.ctx, user))

		user.Email = "new@example.com"
		require.NoError(s.T(), s.store.Save(s.ctx, user))

		_, err := s.store.FindByEmail(s.ctx, "old@example.com")
		assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
		found, err := s.store.FindByEmail(s.ctx, "new@example.com")
		require.NoError(s.T(), err)
		assert.Equal(s.T(), user.ID, found.ID)
	})

	s.Run("Given an email owned by another user When saving Then already used", func() {
		a := s.newUser("a@example.com")
		b := s.newUser("b@example.com")
		require.NoError(s.T(), s.store.Create(s.ctx, a))
		require.NoError(s.T(), s.store.Create(s.ctx, b))

		b.Email = a.Email
		assert.ErrorIs(s.T(), s.store.Save(s.ctx, b), sentinel.ErrAlreadyUsed)
	})

	s.Run("Given an unknown user When saving Then not found", func() {
		assert.ErrorIs(s.T(), s.store.Save(s.ctx, s.newUser("ghost@example.com")), sentinel.ErrNotFound)
	})
}

func (s *InMemoryUserStoreSuite) TestExecute() {
	s.Run("Given validate fails When executing Then nothing is written", func() {
		user := s.newUser("exec-fail@example.com")
		require.NoError(s.T(), s.store.Create(s.ctx, user))
		boom := errors.New("rejected")

		_, err := s.store.Execute(s.ctx, user.ID,
			func(*models.User) error { return boom },
			func(u *models.User) { u.OTPEnabled = true },
		)
		assert.ErrorIs(s.T(), err, boom)

		found, err := s.store.FindByID(s.ctx, user.ID)
		require.NoError(s.T(), err)
		assert.False(s.T(), found.OTPEnabled)
	})

	s.Run("Given validate passes When executing Then the mutation is persisted", func() {
		user := s.newUser("exec-ok@example.com")
		require.NoError(s.T(), s.store.Create(s.ctx, user))

		updated, err := s.store.Execute(s.ctx, user.ID,
			func(*models.User) error { return nil },
			func(u *models.User) { u.OTPEnabled = true },
		)
		require.NoError(s.T(), err)
		assert.True(s.T(), updated.OTPEnabled)

		found, err := s.store.FindByID(s.ctx, user.ID)
		require.NoError(s.T(), err)
		assert.True(s.T(), found.OTPEnabled)
	})

	s.Run("Given a missing user When executing Then not found", func() {
		_, err := s.store.Execute(s.ctx, id.NewUserID(),
			func(*models.User) error { return nil },
			func(*models.User) {},
		)
		assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryUserStoreSuite) TestExecuteIsAtomicUnderContention() {
	user := s.newUser("contended@example.com")
	user.OTPStatusChange = &models.Challenge{Token: "123456", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(s.T(), s.store.Create(s.ctx, user))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, user.ID,
				func(u *models.User) error {
					if u.OTPStatusChange == nil {
						return sentinel.ErrInvalidState
					}
					return nil
				},
				func(u *models.User) {
					u.OTPEnabled = !u.OTPEnabled
					u.OTPStatusChange = nil
				},
			)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(s.T(), 1, successes)
	found, err := s.store.FindByID(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), found.OTPEnabled)
}

func (s *InMemoryUserStoreSuite) TestExternalAccounts() {
	user := s.newUser("linked@example.com")
	require.NoError(s.T(), s.store.Create(s.ctx, user))
	acct := &models.ExternalAccount{Provider: "google", Subject: "sub-1", UserID: user.ID, CreatedAt: time.Now()}

	require.NoError(s.T(), s.store.CreateExternalAccount(s.ctx, acct))
	assert.ErrorIs(s.T(), s.store.CreateExternalAccount(s.ctx, acct), sentinel.ErrAlreadyUsed)

	found, err := s.store.FindExternalAccount(s.ctx, "google", "sub-1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID, found.UserID)

	_, err = s.store.FindExternalAccount(s.ctx, "github", "sub-1")
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)

	orphan := &models.ExternalAccount{Provider: "google", Subject: "sub-2", UserID: id.NewUserID()}
	assert.ErrorIs(s.T(), s.store.CreateExternalAccount(s.ctx, orphan), sentinel.ErrNotFound)
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}
