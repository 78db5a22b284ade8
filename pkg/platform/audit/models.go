package audit

import (
	"context"
	"time"

	id "warden/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time    `json:"timestamp"`
	UserID    id.UserID    `json:"user_id"`
	TenantID  *id.TenantID `json:"tenant_id,omitempty"`
	Subject   string       `json:"subject,omitempty"`
	Action    string       `json:"action"`
	Decision  string       `json:"decision,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Email     string       `json:"email,omitempty"`
	// Synthetic marks tenant admission granted through global-admin elevation.
	Synthetic bool   `json:"synthetic,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

type AuditEvent string

const (
	EventUserCreated           AuditEvent = "user_created"
	EventUserLoggedIn          AuditEvent = "user_logged_in"
	EventAuthFailed            AuditEvent = "auth_failed"
	EventExternalAccountLinked AuditEvent = "external_account_linked"
	EventSessionCreated        AuditEvent = "session_created"
	EventSessionRefreshed      AuditEvent = "session_refreshed"
	EventSessionRevoked        AuditEvent = "session_revoked"
	EventSessionsRevoked       AuditEvent = "sessions_revoked"
	EventPasswordResetIssued   AuditEvent = "password_reset_issued"
	EventPasswordReset         AuditEvent = "password_reset"
	EventAdminBootstrapped     AuditEvent = "admin_bootstrapped"

	EventOTPSent            AuditEvent = "otp_sent"
	EventOTPVerified        AuditEvent = "otp_verified"
	EventOTPFailed          AuditEvent = "otp_failed"
	EventOTPChangeRequested AuditEvent = "otp_change_requested"
	EventOTPChangeApplied   AuditEvent = "otp_change_applied"
	EventOTPDeliveryFailed  AuditEvent = "otp_delivery_failed"

	EventAccessDenied        AuditEvent = "access_denied"
	EventSyntheticMembership AuditEvent = "synthetic_membership_granted"
	EventTenantSelected      AuditEvent = "tenant_selected"
	EventTenantCreated       AuditEvent = "tenant_created"
	EventTenantUpdated       AuditEvent = "tenant_updated"
	EventTenantDeleted       AuditEvent = "tenant_deleted"
	EventMemberAdded         AuditEvent = "tenant_member_added"
	EventMemberUpdated       AuditEvent = "tenant_member_updated"
)
