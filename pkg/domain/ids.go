// Package domain holds the typed identifiers shared by every module.
package domain

import (
	"github.com/google/uuid"

	dErrors "warden/pkg/domain-errors"
)

// Each entity gets its own UUID type so ids cannot be swapped by accident.
type (
	UserID       uuid.UUID
	SessionID    uuid.UUID
	TenantID     uuid.UUID
	TenantUserID uuid.UUID
)

// Parsing happens at the HTTP boundary.

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseSessionID(s string) (SessionID, error) {
	id, err := parseUUID(s, "session ID")
	return SessionID(id), err
}

func ParseTenantID(s string) (TenantID, error) {
	id, err := parseUUID(s, "tenant ID")
	return TenantID(id), err
}

func ParseTenantUserID(s string) (TenantUserID, error) {
	id, err := parseUUID(s, "tenant user ID")
	return TenantUserID(id), err
}

// Random v4 ids for new rows.

func NewUserID() UserID             { return UserID(uuid.New()) }
func NewSessionID() SessionID       { return SessionID(uuid.New()) }
func NewTenantID() TenantID         { return TenantID(uuid.New()) }
func NewTenantUserID() TenantUserID { return TenantUserID(uuid.New()) }

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id SessionID) String() string    { return uuid.UUID(id).String() }
func (id TenantID) String() string     { return uuid.UUID(id).String() }
func (id TenantUserID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id TenantID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id TenantUserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// JSON and text encodings use the canonical UUID form.

func (id UserID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id SessionID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id TenantID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id TenantUserID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *SessionID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *TenantID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *TenantUserID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// parseUUID accepts the nil UUID. Callers that care check IsNil, so a
// lookup of the zero id still reports not found.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
