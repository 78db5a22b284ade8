package models

import (
	"strings"
	"time"

	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
)

// This file contains pure domain models for authentication: entities
// that should not depend on transport or HTTP-specific concerns.

// User is the identity record. Role is global and independent of any tenant.
type User struct {
	ID           id.UserID
	Email        string
	PasswordHash string
	Phone        string
	DisplayName  string
	PictureURL   string
	Role         GlobalRole
	Status       UserStatus
	OTPEnabled   bool

	// Pending account OTP enablement change. Nil when no change is in flight.
	OTPStatusChange *Challenge
	// Pending password reset code. Nil when no reset was requested.
	PasswordReset *Challenge

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

func (u *User) HasPhone() bool {
	return strings.TrimSpace(u.Phone) != ""
}

func (u *User) HasEmail() bool {
	return strings.TrimSpace(u.Email) != ""
}

// NewUser constructs a User and enforces basic invariants.
func NewUser(userID id.UserID, email string, role GlobalRole, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user email cannot be empty")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid global role: "+string(role))
	}
	return &User{
		ID:        userID,
		Email:     email,
		Role:      role,
		Status:    UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NormalizeEmail is the canonical form used for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Challenge is a short-lived code and its expiry. The pair is always set or
// cleared together, so callers hold it as a nullable pointer.
type Challenge struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// IsExpired reports whether now is past the expiry.
func (c *Challenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// NewChallenge builds a challenge valid for ttl from now.
func NewChallenge(token string, now time.Time, ttl time.Duration) *Challenge {
	return &Challenge{Token: token, ExpiresAt: now.Add(ttl)}
}

// ExternalAccount links a User to a subject at an external identity provider.
type ExternalAccount struct {
	Provider  string
	Subject   string
	UserID    id.UserID
	CreatedAt time.Time
}

// ExternalIdentity is the result handed over by an OAuth callback once the
// provider exchange has already happened upstream.
type ExternalIdentity struct {
	Email      string
	Name       string
	PictureURL string
	Subject    string
	Provider   string
}

// ClientContext describes where a session was opened from.
type ClientContext struct {
	IP      string `json:"ip,omitempty"`
	Device  string `json:"device,omitempty"`
	OS      string `json:"os,omitempty"`
	Browser string `json:"browser,omitempty"`
	Geo     string `json:"geo,omitempty"`
}

// DisplayName returns e.g. "Chrome on macOS", or "Unknown device".
func (c ClientContext) DisplayName() string {
	switch {
	case c.Browser != "" && c.OS != "":
		return c.Browser + " on " + c.OS
	case c.Browser != "":
		return c.Browser
	case c.OS != "":
		return c.OS
	case c.Device != "":
		return c.Device
	default:
		return "Unknown device"
	}
}

// Session represents one authenticated login instance.
// This is a pure domain entity - use SessionSummary for JSON responses.
type Session struct {
	ID          id.SessionID
	UserID      id.UserID
	AccessToken string
	ExpiresAt   time.Time

	// OTPNeeded marks a session that is not yet a fully authenticated principal.
	OTPNeeded     bool
	OTPChallenge  *Challenge
	OTPVerifiedAt *time.Time

	// Set only after tenant selection. TenantUserID stays nil when the
	// selection was made through a synthetic membership.
	TenantID     *id.TenantID
	TenantUserID *id.TenantUserID

	Client ClientContext

	CreatedAt  time.Time
	LastSeenAt time.Time
}

// NewSession constructs a Session and validates lifecycle invariants.
func NewSession(sessionID id.SessionID, userID id.UserID, accessToken string, otpNeeded bool, client ClientContext, now time.Time, ttl time.Duration) (*Session, error) {
	if accessToken == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "access token cannot be empty")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session validity window must be positive")
	}
	return &Session{
		ID:          sessionID,
		UserID:      userID,
		AccessToken: accessToken,
		ExpiresAt:   now.Add(ttl),
		OTPNeeded:   otpNeeded,
		Client:      client,
		CreatedAt:   now,
		LastSeenAt:  now,
	}, nil
}

// IsExpired reports whether the session validity window has elapsed.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// OTPState derives the login OTP state machine position from session fields.
// Once OTPNeeded is cleared the session never returns to pending.
func (s *Session) OTPState() OTPState {
	switch {
	case s.OTPNeeded:
		return OTPStatePending
	case s.OTPVerifiedAt != nil:
		return OTPStateSatisfied
	default:
		return OTPStateNotNeeded
	}
}

// IsOTPPending reports whether the login OTP step is still outstanding.
func (s *Session) IsOTPPending() bool {
	return s.OTPState() == OTPStatePending
}

// IssueOTPChallenge replaces any previous challenge on the session.
func (s *Session) IssueOTPChallenge(c *Challenge) {
	s.OTPChallenge = c
}

// ClearOTPChallenge drops the pending challenge.
func (s *Session) ClearOTPChallenge() {
	s.OTPChallenge = nil
}

// MarkOTPVerified completes the login OTP step.
func (s *Session) MarkOTPVerified(at time.Time) {
	s.OTPNeeded = false
	s.OTPChallenge = nil
	s.OTPVerifiedAt = &at
}

// SelectTenant records the active tenant. tenantUserID is nil for synthetic memberships.
func (s *Session) SelectTenant(tenantID id.TenantID, tenantUserID *id.TenantUserID) {
	s.TenantID = &tenantID
	s.TenantUserID = tenantUserID
}

// Rotate swaps in a new access token and restarts the validity window.
func (s *Session) Rotate(accessToken string, now time.Time, ttl time.Duration) {
	s.AccessToken = accessToken
	s.ExpiresAt = now.Add(ttl)
	s.LastSeenAt = now
}

// RecordActivity updates the session's last seen time if the given time is after the current value.
func (s *Session) RecordActivity(at time.Time) {
	if at.After(s.LastSeenAt) {
		s.LastSeenAt = at
	}
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.OTPStatusChange = u.OTPStatusChange.clone()
	cp.PasswordReset = u.PasswordReset.clone()
	return &cp
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.OTPChallenge = s.OTPChallenge.clone()
	if s.OTPVerifiedAt != nil {
		t := *s.OTPVerifiedAt
		cp.OTPVerifiedAt = &t
	}
	if s.TenantID != nil {
		v := *s.TenantID
		cp.TenantID = &v
	}
	if s.TenantUserID != nil {
		v := *s.TenantUserID
		cp.TenantUserID = &v
	}
	return &cp
}

func (c *Challenge) clone() *Challenge {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
