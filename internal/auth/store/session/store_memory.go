package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"warden/internal/auth/models"
	id "warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

var (
	errNotFound    = fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	errTokenIssued = fmt.Errorf("access token already issued: %w", sentinel.ErrAlreadyUsed)
)

// InMemorySessionStore backs development runs and tests. Callers always get
// clones, so mutating a returned session never reaches the store.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
	byToken  map[string]id.SessionID
}

func New() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: map[id.SessionID]*models.Session{},
		byToken:  map[string]id.SessionID{},
	}
}

func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byToken[session.AccessToken]; taken {
		return errTokenIssued
	}
	s.sessions[session.ID] = session.Clone()
	s.byToken[session.AccessToken] = session.ID
	return nil
}

func (s *InMemorySessionStore) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.sessions[sessionID]
	if !ok {
		return nil, errNotFound
	}
	return stored.Clone(), nil
}

func (s *InMemorySessionStore) FindByToken(ctx context.Context, accessToken string) (*models.Session, error) {
	s.mu.RLock()
	sessionID, ok := s.byToken[accessToken]
	s.mu.RUnlock()
	if !ok {
		return nil, errNotFound
	}
	return s.FindByID(ctx, sessionID)
}

// ListByUser returns the user's sessions, newest first.
func (s *InMemorySessionStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Session{}
	for _, stored := range s.sessions {
		if stored.UserID == userID {
			out = append(out, stored.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.Session) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeWhere(func(sess *models.Session) bool { return sess.ID == sessionID }) == 0 {
		return errNotFound
	}
	return nil
}

func (s *InMemorySessionStore) DeleteByUser(_ context.Context, userID id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeWhere(func(sess *models.Session) bool { return sess.UserID == userID }), nil
}

// DeleteExpiredSessions removes sessions whose expiry is before the cutoff.
func (s *InMemorySessionStore) DeleteExpiredSessions(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeWhere(func(sess *models.Session) bool { return sess.ExpiresAt.Before(before) }), nil
}

// removeWhere drops matching sessions with their token index. Callers hold mu.
func (s *InMemorySessionStore) removeWhere(match func(*models.Session) bool) int {
	n := 0
	for sid, stored := range s.sessions {
		if match(stored) {
			delete(s.byToken, stored.AccessToken)
			delete(s.sessions, sid)
			n++
		}
	}
	return n
}

// Execute applies validate and mutate under the write lock. A rotated token
// is re-indexed before the lock is released.
func (s *InMemorySessionStore) Execute(_ context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[sessionID]
	if !ok {
		return nil, errNotFound
	}
	working := stored.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)

	if working.AccessToken != stored.AccessToken {
		if _, taken := s.byToken[working.AccessToken]; taken {
			return nil, errTokenIssued
		}
		delete(s.byToken, stored.AccessToken)
		s.byToken[working.AccessToken] = sessionID
	}
	s.sessions[sessionID] = working.Clone()
	return working, nil
}
