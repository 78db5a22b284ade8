// Package postgres persists audit events to the audit_events table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "warden/pkg/domain"
	audit "warden/pkg/platform/audit"
)

const eventColumns = `occurred_at, action, user_id, tenant_id, subject, email, decision, reason, synthetic, request_id`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes one row. A nil user or tenant is stored as NULL.
func (s *Store) Append(ctx context.Context, e audit.Event) error {
	var tenant uuid.NullUUID
	if e.TenantID != nil {
		tenant = uuid.NullUUID{UUID: uuid.UUID(*e.TenantID), Valid: true}
	}
	user := uuid.NullUUID{UUID: uuid.UUID(e.UserID), Valid: !e.UserID.IsNil()}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (`+eventColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.Timestamp, e.Action, user, tenant, e.Subject, e.Email, e.Decision, e.Reason, e.Synthetic, e.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event %s: %w", e.Action, err)
	}
	return nil
}

// ListByUser returns the user's events, newest first.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM audit_events WHERE user_id = $1 ORDER BY occurred_at DESC, id DESC`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return out, nil
}

func scanEvent(rows *sql.Rows) (audit.Event, error) {
	var (
		e            audit.Event
		user, tenant uuid.NullUUID
	)
	if err := rows.Scan(&e.Timestamp, &e.Action, &user, &tenant, &e.Subject,
		&e.Email, &e.Decision, &e.Reason, &e.Synthetic, &e.RequestID); err != nil {
		return audit.Event{}, fmt.Errorf("scan audit event: %w", err)
	}
	if user.Valid {
		e.UserID = id.UserID(user.UUID)
	}
	if tenant.Valid {
		t := id.TenantID(tenant.UUID)
		e.TenantID = &t
	}
	return e, nil
}
