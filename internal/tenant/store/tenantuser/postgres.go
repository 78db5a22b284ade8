package tenantuser

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"warden/internal/platform/database"
	"warden/internal/tenant/models"
	id "warden/pkg/domain"
	"warden/pkg/platform/sentinel"

	"github.com/google/uuid"
)

const columns = `id, tenant_id, user_id, role, status, created_at, updated_at`

// PostgresStore persists memberships in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed membership store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, tu *models.TenantUser) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenant_users (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(tu.ID), uuid.UUID(tu.TenantID), uuid.UUID(tu.UserID),
		string(tu.Role), string(tu.Status), tu.CreatedAt, tu.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("user is already a member of tenant: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create tenant user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantUserID id.TenantUserID) (*models.TenantUser, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM tenant_users WHERE id = $1`, uuid.UUID(tenantUserID))
	return scanOne(row, "find tenant user by id")
}

func (s *PostgresStore) FindByTenantAndUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*models.TenantUser, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+columns+` FROM tenant_users
		WHERE tenant_id = $1 AND user_id = $2`, uuid.UUID(tenantID), uuid.UUID(userID))
	return scanOne(row, "find tenant user")
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.TenantUser, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+columns+` FROM tenant_users
		WHERE tenant_id = $1
		ORDER BY created_at`, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("list tenant users: %w", err)
	}
	defer rows.Close()

	out := make([]*models.TenantUser, 0)
	for rows.Next() {
		tu, err := scanTenantUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant user: %w", err)
		}
		out = append(out, tu)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenant users: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, tu *models.TenantUser) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tenant_users SET role = $2, status = $3, updated_at = $4
		WHERE id = $1`,
		uuid.UUID(tu.ID), string(tu.Role), string(tu.Status), tu.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update tenant user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tenant user rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteByTenant(ctx context.Context, tenantID id.TenantID) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tenant_users WHERE tenant_id = $1`, uuid.UUID(tenantID))
	if err != nil {
		return 0, fmt.Errorf("delete tenant users: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete tenant users rows: %w", err)
	}
	return int(rows), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner, op string) (*models.TenantUser, error) {
	tu, err := scanTenantUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tu, nil
}

func scanTenantUser(row rowScanner) (*models.TenantUser, error) {
	var (
		tu                   models.TenantUser
		rowID, tenantID, uid uuid.UUID
		role, status         string
	)
	if err := row.Scan(&rowID, &tenantID, &uid, &role, &status, &tu.CreatedAt, &tu.UpdatedAt); err != nil {
		return nil, err
	}
	tu.ID = id.TenantUserID(rowID)
	tu.TenantID = id.TenantID(tenantID)
	tu.UserID = id.UserID(uid)
	tu.Role = models.TenantRole(role)
	tu.Status = models.MemberStatus(status)
	return &tu, nil
}
