package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"warden/internal/auth/models"
	"warden/internal/platform/database"
	id "warden/pkg/domain"
	"warden/pkg/platform/sentinel"

	"github.com/google/uuid"
)

const userColumns = `id, email, password_hash, phone, display_name, picture_url, role, status, otp_enabled,
	otp_status_change_token, otp_status_change_expires_at, otp_status_change_attempts,
	password_reset_token, password_reset_expires_at, password_reset_attempts,
	created_at, updated_at`

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	osc := toChallengeColumns(user.OTPStatusChange)
	pr := toChallengeColumns(user.PasswordReset)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		uuid.UUID(user.ID), user.Email, user.PasswordHash, user.Phone, user.DisplayName, user.PictureURL,
		string(user.Role), string(user.Status), user.OTPEnabled,
		osc.token, osc.expiresAt, osc.attempts,
		pr.token, pr.expiresAt, pr.attempts,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("user already exists: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	return s.update(ctx, s.db, user)
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uuid.UUID(userID))
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

// Execute atomically validates and mutates a user under a row lock.
func (s *PostgresStore) Execute(ctx context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin user execute tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is no-op; error already captured
	}()

	row := tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, uuid.UUID(userID))
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user for execute: %w", err)
	}
	if err := validate(user); err != nil {
		return nil, err
	}

	mutate(user)
	if err := s.update(ctx, tx, user); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit user execute: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) FindExternalAccount(ctx context.Context, provider, subject string) (*models.ExternalAccount, error) {
	var (
		acct   models.ExternalAccount
		userID uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT provider, subject, user_id, created_at
		FROM external_accounts WHERE provider = $1 AND subject = $2`, provider, subject,
	).Scan(&acct.Provider, &acct.Subject, &userID, &acct.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("external account not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find external account: %w", err)
	}
	acct.UserID = id.UserID(userID)
	return &acct, nil
}

func (s *PostgresStore) CreateExternalAccount(ctx context.Context, acct *models.ExternalAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO external_accounts (provider, subject, user_id, created_at)
		VALUES ($1, $2, $3, $4)`,
		acct.Provider, acct.Subject, uuid.UUID(acct.UserID), acct.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("external account already linked: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create external account: %w", err)
	}
	return nil
}

func (s *PostgresStore) update(ctx context.Context, q querier, user *models.User) error {
	osc := toChallengeColumns(user.OTPStatusChange)
	pr := toChallengeColumns(user.PasswordReset)
	res, err := q.ExecContext(ctx, `
		UPDATE users SET
			email = $2, password_hash = $3, phone = $4, display_name = $5, picture_url = $6,
			role = $7, status = $8, otp_enabled = $9,
			otp_status_change_token = $10, otp_status_change_expires_at = $11, otp_status_change_attempts = $12,
			password_reset_token = $13, password_reset_expires_at = $14, password_reset_attempts = $15,
			updated_at = $16
		WHERE id = $1`,
		uuid.UUID(user.ID), user.Email, user.PasswordHash, user.Phone, user.DisplayName, user.PictureURL,
		string(user.Role), string(user.Status), user.OTPEnabled,
		osc.token, osc.expiresAt, osc.attempts,
		pr.token, pr.expiresAt, pr.attempts,
		user.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("email already registered: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user     models.User
		userID   uuid.UUID
		role     string
		status   string
		osc, prc challengeColumns
	)
	err := row.Scan(
		&userID, &user.Email, &user.PasswordHash, &user.Phone, &user.DisplayName, &user.PictureURL,
		&role, &status, &user.OTPEnabled,
		&osc.token, &osc.expiresAt, &osc.attempts,
		&prc.token, &prc.expiresAt, &prc.attempts,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.ID = id.UserID(userID)
	user.Role = models.GlobalRole(role)
	user.Status = models.UserStatus(status)
	user.OTPStatusChange = osc.challenge()
	user.PasswordReset = prc.challenge()
	return &user, nil
}

// challengeColumns maps a nullable Challenge onto its token/expiry/attempts columns.
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
