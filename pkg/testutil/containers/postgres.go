//go:build integration

package containers

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"warden/internal/platform/database"
	"warden/migrations"
	id "warden/pkg/domain"
)

// moduleTables lists every table the migrations create, children first.
var moduleTables = []string{
	"audit_events",
	"sessions",
	"tenant_users",
	"external_accounts",
	"users",
	"tenants",
}

// PostgresContainer is a migrated Postgres reached through the same
// database.Pool the server uses.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	Pool      *database.Pool
	DB        *sql.DB
}

// NewPostgresContainer starts Postgres and applies migrations.FS with
// Pool.Migrate. The container is shared through the Manager and reaped by
// Ryuk when the test binary exits.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("warden_test"),
		postgres.WithUsername("warden"),
		postgres.WithPassword("warden_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("postgres connection string: %v", err)
	}

	cfg := database.DefaultConfig()
	cfg.URL = dsn
	pool, err := database.New(ctx, cfg)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("open postgres pool: %v", err)
	}
	if _, err := pool.Migrate(ctx, migrations.FS); err != nil {
		_ = pool.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("migrate: %v", err)
	}

	return &PostgresContainer{Container: container, DSN: dsn, Pool: pool, DB: pool.DB()}
}

// TruncateModuleTables empties every table so each test starts clean.
func (p *PostgresContainer) TruncateModuleTables(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+strings.Join(moduleTables, ", ")+" CASCADE")
	return err
}

func (p *PostgresContainer) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.DB.ExecContext(ctx, query, args...)
}

// CreateTestTenant inserts an ACTIVE tenant with a unique domain.
func (p *PostgresContainer) CreateTestTenant(ctx context.Context, t testing.TB) id.TenantID {
	t.Helper()
	tenantID := id.NewTenantID()
	suffix := uuid.NewString()
	if _, err := p.Exec(ctx, `
		INSERT INTO tenants (id, domain, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'ACTIVE', NOW(), NOW())`,
		uuid.UUID(tenantID), "t-"+suffix+".example.com", "Tenant "+suffix,
	); err != nil {
		t.Fatalf("insert tenant: %v", err)
	}
	return tenantID
}

// CreateTestUser inserts an ACTIVE USER with a unique email.
func (p *PostgresContainer) CreateTestUser(ctx context.Context, t testing.TB) id.UserID {
	t.Helper()
	userID := id.NewUserID()
	if _, err := p.Exec(ctx, `
		INSERT INTO users (id, email, role, status)
		VALUES ($1, $2, 'USER', 'ACTIVE')`,
		uuid.UUID(userID), "user-"+uuid.NewString()+"@example.com",
	); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return userID
}
