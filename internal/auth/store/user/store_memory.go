// Package user stores accounts and their external identity links.
//
// Every store returns sentinel.ErrNotFound for a missing user and
// sentinel.ErrAlreadyUsed when a unique key (email, provider subject) is
// taken.
package user

import (
	"context"
	"fmt"
	"sync"

	"warden/internal/auth/models"
	id "warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

// InMemoryUserStore stores users in memory for tests and single-node dev.
// Values are copied in and out so callers never alias stored state.
type InMemoryUserStore struct {
	mu       sync.RWMutex
	users    map[id.UserID]*models.User
	byEmail  map[string]id.UserID
	external map[externalKey]*models.ExternalAccount
}

type externalKey struct {
	provider string
	subject  string
}

// New constructs an empty in-memory user store.
func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:    make(map[id.UserID]*models.User),
		byEmail:  make(map[string]id.UserID),
		external: make(map[externalKey]*models.ExternalAccount),
	}
}

func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("user already exists: %w", sentinel.ErrAlreadyUsed)
	}
	if _, ok := s.byEmail[user.Email]; ok {
		return fmt.Errorf("email already registered: %w", sentinel.ErrAlreadyUsed)
	}
	s.users[user.ID] = user.Clone()
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *InMemoryUserStore) Save(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	if owner, taken := s.byEmail[user.Email]; taken && owner != user.ID {
		return fmt.Errorf("email already registered: %w", sentinel.ErrAlreadyUsed)
	}
	delete(s.byEmail, existing.Email)
	s.users[user.ID] = user.Clone()
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		return user.Clone(), nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID, ok := s.byEmail[email]; ok {
		return s.users[userID].Clone(), nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// Execute runs validate and mutate under the store lock, so the read-modify-write
// is atomic with respect to every other writer.
func (s *InMemoryUserStore) Execute(_ context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	user := stored.Clone()
	if err := validate(user); err != nil {
		return nil, err
	}
	mutate(user)
	s.users[userID] = user.Clone()
	return user, nil
}

func (s *InMemoryUserStore) FindExternalAccount(_ context.Context, provider, subject string) (*models.ExternalAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if acct, ok := s.external[externalKey{provider, subject}]; ok {
		cp := *acct
		return &cp, nil
	}
	return nil, fmt.Errorf("external account not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) CreateExternalAccount(_ context.Context, acct *models.ExternalAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := externalKey{acct.Provider, acct.Subject}
	if _, ok := s.external[key]; ok {
		return fmt.Errorf("external account already linked: %w", sentinel.ErrAlreadyUsed)
	}
	if _, ok := s.users[acct.UserID]; !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	cp := *acct
	s.external[key] = &cp
	return nil
}
