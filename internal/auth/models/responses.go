package models

import "time"

// This file contains transport-layer response models for JSON output.
// These are shaped for API responses and should avoid domain behavior.

// SessionResult is returned by every flow that opens or rotates a session.
type SessionResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	OTPNeeded   bool      `json:"otp_needed"`
}

// NewSessionResult shapes a session for the client that owns it.
func NewSessionResult(s *Session) *SessionResult {
	return &SessionResult{
		AccessToken: s.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   s.ExpiresAt,
		OTPNeeded:   s.OTPNeeded,
	}
}

// UserResult is the profile view of the authenticated user.
type UserResult struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	PictureURL  string `json:"picture_url,omitempty"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	OTPEnabled  bool   `json:"otp_enabled"`
	TenantID    string `json:"tenant_id,omitempty"`
}

func NewUserResult(u *User, s *Session) *UserResult {
	res := &UserResult{
		ID:          u.ID.String(),
		Email:       u.Email,
		Phone:       u.Phone,
		DisplayName: u.DisplayName,
		PictureURL:  u.PictureURL,
		Role:        string(u.Role),
		Status:      string(u.Status),
		OTPEnabled:  u.OTPEnabled,
	}
	if s != nil && s.TenantID != nil {
		res.TenantID = s.TenantID.String()
	}
	return res
}

// SessionSummary represents a summary of an active session for display to the user.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	Device       string    `json:"device"`
	IP           string    `json:"ip,omitempty"`
	Location     string    `json:"location,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
	IsCurrent    bool      `json:"is_current"`
	PendingOTP   bool      `json:"pending_otp,omitempty"`
	TenantID     string    `json:"tenant_id,omitempty"`
}

// SessionsResult represents the response to a list sessions request,
// containing a collection of active sessions for the authenticated user.
type SessionsResult struct {
	Sessions []SessionSummary `json:"sessions"`
}

// DestroyOthersResult reports how many sessions were removed.
type DestroyOthersResult struct {
	DestroyedCount int `json:"destroyed_count"`
}

// OTPChangeResult reports the account OTP setting after a verified change.
type OTPChangeResult struct {
	OTPEnabled bool `json:"otp_enabled"`
}

// MessageResult is a plain acknowledgement.
type MessageResult struct {
	Message string `json:"message"`
}
