package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"warden/internal/auth/models"
	"warden/internal/platform/database"
	id "warden/pkg/domain"
	"warden/pkg/platform/sentinel"

	"github.com/google/uuid"
)

const sessionColumns = `id, user_id, access_token, expires_at, otp_needed,
	otp_challenge_token, otp_challenge_expires_at, otp_challenge_attempts, otp_verified_at,
	tenant_id, tenant_user_id,
	client_ip, client_device, client_os, client_browser, client_geo,
	created_at, last_seen_at`

// PostgresStore persists sessions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed session store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	challenge := toChallengeColumns(session.OTPChallenge)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		uuid.UUID(session.ID), uuid.UUID(session.UserID), session.AccessToken, session.ExpiresAt, session.OTPNeeded,
		challenge.token, challenge.expiresAt, challenge.attempts, nullTime(session.OTPVerifiedAt),
		nullTenantID(session.TenantID), nullTenantUserID(session.TenantUserID),
		session.Client.IP, session.Client.Device, session.Client.OS, session.Client.Browser, session.Client.Geo,
		session.CreatedAt, session.LastSeenAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("access token already issued: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, uuid.UUID(sessionID))
	return s.scanOne(row, "find session by id")
}

func (s *PostgresStore) FindByToken(ctx context.Context, accessToken string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE access_token = $1`, accessToken)
	return s.scanOne(row, "find session by token")
}

func (s *PostgresStore) scanOne(row rowScanner, op string) (*models.Session, error) {
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list sessions by user: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, uuid.UUID(sessionID))
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteByUser(ctx context.Context, userID id.UserID) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, uuid.UUID(userID))
	if err != nil {
		return 0, fmt.Errorf("delete sessions by user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete sessions by user rows: %w", err)
	}
	return int(rows), nil
}

// DeleteExpiredSessions removes sessions that expired before the cutoff.
func (s *PostgresStore) DeleteExpiredSessions(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions rows: %w", err)
	}
	return int(rows), nil
}

// Execute atomically validates and mutates a session under a row lock.
func (s *PostgresStore) Execute(ctx context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin session execute tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is no-op; error already captured
	}()

	row := tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`, uuid.UUID(sessionID))
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find session for execute: %w", err)
	}
	if err := validate(session); err != nil {
		return nil, err
	}

	mutate(session)
	if err := s.update(ctx, tx, session); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit session execute: %w", err)
	}
	return session, nil
}

func (s *PostgresStore) update(ctx context.Context, q querier, session *models.Session) error {
	challenge := toChallengeColumns(session.OTPChallenge)
	res, err := q.ExecContext(ctx, `
		UPDATE sessions SET
			access_token = $2, expires_at = $3, otp_needed = $4,
			otp_challenge_token = $5, otp_challenge_expires_at = $6, otp_challenge_attempts = $7,
			otp_verified_at = $8, tenant_id = $9, tenant_user_id = $10, last_seen_at = $11
		WHERE id = $1`,
		uuid.UUID(session.ID), session.AccessToken, session.ExpiresAt, session.OTPNeeded,
		challenge.token, challenge.expiresAt, challenge.attempts,
		nullTime(session.OTPVerifiedAt), nullTenantID(session.TenantID), nullTenantUserID(session.TenantUserID),
		session.LastSeenAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("access token already issued: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		session      models.Session
		sessionID    uuid.UUID
		userID       uuid.UUID
		challenge    challengeColumns
		verifiedAt   sql.NullTime
		tenantID     uuid.NullUUID
		tenantUserID uuid.NullUUID
	)
	err := row.Scan(
		&sessionID, &userID, &session.AccessToken, &session.ExpiresAt, &session.OTPNeeded,
		&challenge.token, &challenge.expiresAt, &challenge.attempts, &verifiedAt,
		&tenantID, &tenantUserID,
		&session.Client.IP, &session.Client.Device, &session.Client.OS, &session.Client.Browser, &session.Client.Geo,
		&session.CreatedAt, &session.LastSeenAt,
	)
	if err != nil {
		return nil, err
	}
	session.ID = id.SessionID(sessionID)
	session.UserID = id.UserID(userID)
	session.OTPChallenge = challenge.challenge()
	if verifiedAt.Valid {
		t := verifiedAt.Time
		session.OTPVerifiedAt = &t
	}
	if tenantID.Valid {
		v := id.TenantID(tenantID.UUID)
		session.TenantID = &v
	}
	if tenantUserID.Valid {
		v := id.TenantUserID(tenantUserID.UUID)
		session.TenantUserID = &v
	}
	return &session, nil
}

type challengeColumns struct {
	token     sql.NullString
	expiresAt sql.NullTime
	attempts  int
}

func toChallengeColumns(c *models.Challenge) challengeColumns {
	if c == nil {
		return challengeColumns{}
	}
	return challengeColumns{
		token:     sql.NullString{String: c.Token, Valid: true},
		expiresAt: sql.NullTime{Time: c.ExpiresAt, Valid: true},
		attempts:  c.Attempts,
	}
}

func (c challengeColumns) challenge() *models.Challenge {
	if !c.token.Valid || !c.expiresAt.Valid {
		return nil
	}
	return &models.Challenge{Token: c.token.String, ExpiresAt: c.expiresAt.Time, Attempts: c.attempts}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTenantID(v *id.TenantID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

func nullTenantUserID(v *id.TenantUserID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}
