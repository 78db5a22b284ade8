package service

import (
	"context"
	"strings"

	"warden/internal/auth/models"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/middleware/requesttime"
)

// CreateSession opens a session for user. The login OTP step applies only
// when the caller asked for it and the account has OTP enabled.
func (s *Service) CreateSession(ctx context.Context, user *models.User, client models.ClientContext, otpConsidered bool) (*models.Session, error) {
	if user == nil {
		return nil, dErrors.New(dErrors.CodeUserNotFound, "user required")
	}
	now := requesttime.Now(ctx)
	session, err := models.NewSession(id.NewSessionID(), user.ID, s.tokens.SessionToken(), otpConsidered && user.OTPEnabled, client, now, s.cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	s.logAudit(ctx, audit.EventSessionCreated,
		"user_id", user.ID.String(),
		"session_id", session.ID.String(),
		"otp_needed", session.OTPNeeded,
		"device", client.DisplayName(),
	)
	s.incrementSessionCreated()
	return session, nil
}

// Resolve turns a bearer token into its principal. Checks run in a fixed
// order: unknown token, expired session, pending login OTP. The user is
// always re-read so role and status changes apply on the next request.
func (s *Service) Resolve(ctx context.Context, bearer string) (*models.User, *models.Session, error) {
	session, err := s.LookupSession(ctx, bearer)
	if err != nil {
		return nil, nil, err
	}
	if session.OTPNeeded {
		s.incrementResolveFailure(string(dErrors.CodeOtpVerificationNeeded))
		return nil, nil, dErrors.New(dErrors.CodeOtpVerificationNeeded, "OTP verification required")
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		err = translate(err, dErrors.CodeUserNotFound, "failed to load session owner")
		s.authFailure(ctx, string(dErrors.CodeOf(err)), dErrors.HasCode(err, dErrors.CodeInternal),
			"user_id", session.UserID.String(),
			"session_id", session.ID.String(),
		)
		s.incrementResolveFailure(string(dErrors.CodeOf(err)))
		return nil, nil, err
	}
	return user, session, nil
}

// LookupSession finds a live session by token without applying the OTP check.
func (s *Service) LookupSession(ctx context.Context, bearer string) (*models.Session, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		s.incrementResolveFailure(string(dErrors.CodeUserNotAuthenticated))
		return nil, dErrors.New(dErrors.CodeUserNotAuthenticated, "missing bearer token")
	}
	session, err := s.sessions.FindByToken(ctx, bearer)
	if err != nil {
		err = translate(err, dErrors.CodeSessionNotFound, "failed to load session")
		s.incrementResolveFailure(string(dErrors.CodeOf(err)))
		return nil, err
	}
	if session.IsExpired(requesttime.Now(ctx)) {
		s.incrementResolveFailure(string(dErrors.CodeSessionExpired))
		return nil, dErrors.New(dErrors.CodeSessionExpired, "session expired")
	}
	return session, nil
}

// RefreshSession rotates the access token and restarts the validity window.
// OTP and tenant selection carry over unchanged.
func (s *Service) RefreshSession(ctx context.Context, session *models.Session) (*models.Session, error) {
	if session == nil {
		return nil, dErrors.New(dErrors.CodeUserNotAuthenticated, "authentication required")
	}
	now := requesttime.Now(ctx)
	next := s.tokens.SessionToken()
	updated, err := s.sessions.Execute(ctx, session.ID,
		func(current *models.Session) error {
			if current.AccessToken != session.AccessToken {
				return dErrors.New(dErrors.CodeSessionNotFound, "session not found")
			}
			if current.IsExpired(now) {
				return dErrors.New(dErrors.CodeSessionExpired, "session expired")
			}
			return nil
		},
		func(current *models.Session) {
			current.Rotate(next, now, s.cfg.SessionTTL)
		},
	)
	if err != nil {
		return nil, translate(err, dErrors.CodeSessionNotFound, "failed to refresh session")
	}

	s.logAudit(ctx, audit.EventSessionRefreshed,
		"user_id", updated.UserID.String(),
		"session_id", updated.ID.String(),
	)
	return updated, nil
}

// Logout deletes the caller's current session.
func (s *Service) Logout(ctx context.Context, session *models.Session) error {
	if session == nil {
		return dErrors.New(dErrors.CodeUserNotAuthenticated, "authentication required")
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return translate(err, dErrors.CodeSessionNotFound, "failed to delete session")
	}
	s.logAudit(ctx, audit.EventSessionRevoked,
		"user_id", session.UserID.String(),
		"session_id", session.ID.String(),
	)
	s.addSessionsRevoked(1)
	return nil
}
