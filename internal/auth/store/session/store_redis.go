package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"warden/internal/auth/models"
	id "warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

// Key layout:
//
//	session:<id>         JSON session record
//	session_token:<tok>  session id, the bearer lookup index
//	user_sessions:<uid>  set of session ids owned by the user
const (
	sessionKeyPrefix     = "session:"
	tokenKeyPrefix       = "session_token:"
	userSessionKeyPrefix = "user_sessions:"

	// Batch size hint for SSCAN over a user's session set.
	scanCount = 100

	// An expired session stays readable this long so lookups can report
	// session_expired rather than session_not_found.
	minKeyTTL = time.Minute
)

// record mirrors models.Session field for field so the two convert freely;
// only the JSON names differ.
type record struct {
	ID            id.SessionID         `json:"id"`
	UserID        id.UserID            `json:"user_id"`
	AccessToken   string               `json:"access_token"`
	ExpiresAt     time.Time            `json:"expires_at"`
	OTPNeeded     bool                 `json:"otp_needed"`
	OTPChallenge  *models.Challenge    `json:"otp_challenge,omitempty"`
	OTPVerifiedAt *time.Time           `json:"otp_verified_at,omitempty"`
	TenantID      *id.TenantID         `json:"tenant_id,omitempty"`
	TenantUserID  *id.TenantUserID     `json:"tenant_user_id,omitempty"`
	Client        models.ClientContext `json:"client"`
	CreatedAt     time.Time            `json:"created_at"`
	LastSeenAt    time.Time            `json:"last_seen_at"`
}

func encode(s *models.Session) ([]byte, error) {
	data, err := json.Marshal((*record)(s))
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

func decode(data string) (*models.Session, error) {
	var r record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return (*models.Session)(&r), nil
}

// RedisStore shares sessions between instances. Every key expires with the
// session, so nothing needs sweeping.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(sid string) string    { return sessionKeyPrefix + sid }
func tokenKey(token string) string    { return tokenKeyPrefix + token }
func userKey(userID id.UserID) string { return userSessionKeyPrefix + userID.String() }

func ttlFor(s *models.Session) time.Duration {
	return max(time.Until(s.ExpiresAt), minKeyTTL)
}

// Create claims the token index first so a duplicate token never overwrites
// another session.
func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return errors.New("session is required")
	}
	data, err := encode(session)
	if err != nil {
		return err
	}
	sid, ttl := session.ID.String(), ttlFor(session)

	claimed, err := s.client.SetNX(ctx, tokenKey(session.AccessToken), sid, ttl).Result()
	if err != nil {
		return fmt.Errorf("claim session token: %w", err)
	}
	if !claimed {
		return fmt.Errorf("access token already issued: %w", sentinel.ErrAlreadyUsed)
	}

	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKey(sid), data, ttl)
		p.SAdd(ctx, userKey(session.UserID), sid)
		p.Expire(ctx, userKey(session.UserID), ttl+time.Hour)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	return s.load(ctx, sessionID.String())
}

func (s *RedisStore) load(ctx context.Context, sid string) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(sid)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("session %s: %w", sid, sentinel.ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("load session: %w", err)
	}
	return decode(data)
}

func (s *RedisStore) FindByToken(ctx context.Context, accessToken string) (*models.Session, error) {
	sid, err := s.client.Get(ctx, tokenKey(accessToken)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("session token: %w", sentinel.ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("find session by token: %w", err)
	}
	session, err := s.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	// The index can briefly lag a rotation that raced with this read.
	if session.AccessToken != accessToken {
		return nil, fmt.Errorf("session token: %w", sentinel.ErrNotFound)
	}
	return session, nil
}

// owned loads the sessions in the user's set. ids whose session key has
// expired are returned as stale.
func (s *RedisStore) owned(ctx context.Context, ids []string) (live []*models.Session, stale []any) {
	cmds := make([]*redis.StringCmd, len(ids))
	// Per-command errors are inspected below.
	_, _ = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, sid := range ids {
			cmds[i] = p.Get(ctx, sessionKey(sid))
		}
		return nil
	})
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			stale = append(stale, ids[i])
			continue
		}
		if err != nil {
			continue
		}
		if session, err := decode(data); err == nil {
			live = append(live, session)
		}
	}
	return live, stale
}

// ListByUser returns every session in the user's set, newest first, and
// drops expired ids from the set as it goes.
func (s *RedisStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error) {
	var ids []string
	iter := s.client.SScan(ctx, userKey(userID), 0, "", scanCount).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list session ids: %w", err)
	}
	sessions, stale := s.owned(ctx, ids)
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, userKey(userID), stale...).Err(); err != nil {
			return nil, fmt.Errorf("prune stale session ids: %w", err)
		}
	}
	slices.SortFunc(sessions, func(a, b *models.Session) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if sessions == nil {
		sessions = []*models.Session{}
	}
	return sessions, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	session, err := s.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	sid := sessionID.String()
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKey(sid), tokenKey(session.AccessToken))
		p.SRem(ctx, userKey(session.UserID), sid)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteByUser(ctx context.Context, userID id.UserID) (int, error) {
	ids, err := s.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("list session ids: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	sessions, _ := s.owned(ctx, ids)

	keys := []string{userKey(userID)}
	for _, session := range sessions {
		keys = append(keys, sessionKey(session.ID.String()), tokenKey(session.AccessToken))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("delete sessions by user: %w", err)
	}
	return len(sessions), nil
}

// Execute runs validate then mutate on the stored session inside a WATCH
// transaction. A concurrent write fails it with sentinel.ErrConflict. When
// mutate rotates the token, the index moves in the same transaction.
func (s *RedisStore) Execute(ctx context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	sid := sessionID.String()
	key := sessionKey(sid)
	var updated *models.Session

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			return sentinel.ErrNotFound
		case err != nil:
			return fmt.Errorf("load session: %w", err)
		}
		session, err := decode(data)
		if err != nil {
			return err
		}
		oldToken := session.AccessToken

		if err := validate(session); err != nil {
			return err
		}
		mutate(session)

		rotated := session.AccessToken != oldToken
		if rotated {
			n, err := tx.Exists(ctx, tokenKey(session.AccessToken)).Result()
			if err != nil {
				return fmt.Errorf("check rotated token: %w", err)
			}
			if n > 0 {
				return fmt.Errorf("access token already issued: %w", sentinel.ErrAlreadyUsed)
			}
		}
		next, err := encode(session)
		if err != nil {
			return err
		}

		ttl := ttlFor(session)
		if _, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, next, ttl)
			if rotated {
				p.Del(ctx, tokenKey(oldToken))
			}
			p.Set(ctx, tokenKey(session.AccessToken), sid, ttl)
			return nil
		}); err != nil {
			return err
		}
		updated = session
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil, fmt.Errorf("session modified concurrently: %w", sentinel.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}
