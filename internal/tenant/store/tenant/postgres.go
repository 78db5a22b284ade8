package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"warden/internal/platform/database"
	"warden/internal/tenant/models"
	id "warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

const tenantColumns = `id, domain, name, status, description, region, created_at, updated_at`

// PostgresStore keeps tenants in the tenants table. Domains are stored
// normalized and a unique index on domain enforces one tenant per domain.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfDomainAvailable(ctx context.Context, t *models.Tenant) error {
	if t == nil {
		return errors.New("tenant is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (`+tenantColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(t.ID), models.NormalizeDomain(t.Domain), t.Name, string(t.Status),
		t.Description, t.Region, t.CreatedAt, t.UpdatedAt,
	)
	return writeErr("create tenant", err)
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	return s.findOne(ctx, "id", uuid.UUID(tenantID))
}

func (s *PostgresStore) FindByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	return s.findOne(ctx, "domain", models.NormalizeDomain(domain))
}

func (s *PostgresStore) findOne(ctx context.Context, column string, arg any) (*models.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE `+column+` = $1`, arg)
	t, err := scanTenant(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, sentinel.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("find tenant by %s: %w", column, err)
	}
	return t, nil
}

// List returns every tenant ordered by domain.
func (s *PostgresStore) List(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	out := []*models.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("list tenants: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM tenants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tenants: %w", err)
	}
	return n, nil
}

// Update rewrites the mutable columns. A missing row is sentinel.ErrNotFound.
func (s *PostgresStore) Update(ctx context.Context, t *models.Tenant) error {
	if t == nil {
		return errors.New("tenant is required")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tenants SET domain = $2, name = $3, status = $4, description = $5, region = $6, updated_at = $7 WHERE id = $1`,
		uuid.UUID(t.ID), models.NormalizeDomain(t.Domain), t.Name, string(t.Status),
		t.Description, t.Region, t.UpdatedAt,
	)
	if err != nil {
		return writeErr("update tenant", err)
	}
	return oneRow(res, "update tenant")
}

// Delete removes the tenant. Memberships cascade; sessions that selected it
// have their selection cleared by the foreign key.
func (s *PostgresStore) Delete(ctx context.Context, tenantID id.TenantID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, uuid.UUID(tenantID))
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	return oneRow(res, "delete tenant")
}

func writeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%s: domain already used: %w", op, sentinel.ErrAlreadyUsed)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func oneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanTenant(row interface{ Scan(...any) error }) (*models.Tenant, error) {
	var (
		t      models.Tenant
		raw    uuid.UUID
		status string
	)
	if err := row.Scan(&raw, &t.Domain, &t.Name, &status, &t.Description, &t.Region, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.ID = id.TenantID(raw)
	t.Status = models.TenantStatus(status)
	return &t, nil
}
