package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"warden/internal/auth/models"
	"warden/internal/auth/token"
	"warden/internal/notify"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/middleware/requesttime"
	"warden/pkg/platform/privacy"
	"warden/pkg/platform/sentinel"
	"warden/pkg/secrets"
)

func invalidResetCode() error {
	return dErrors.New(dErrors.CodeInvalidResetCode, "invalid or expired reset code")
}

// RequestPasswordReset stores a fresh reset code on the account and emails it.
// Unknown emails succeed without doing anything.
func (s *Service) RequestPasswordReset(ctx context.Context, address string) error {
	address = models.NormalizeEmail(address)
	user, err := s.users.FindByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email",
				"email", privacy.MaskContact(address),
			)
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	now := requesttime.Now(ctx)
	code := s.tokens.NumericChallenge()
	if _, err := s.users.Execute(ctx, user.ID,
		func(*models.User) error { return nil },
		func(u *models.User) {
			u.PasswordReset = models.NewChallenge(code, now, s.cfg.PasswordResetTTL)
			u.UpdatedAt = now
		},
	); err != nil {
		return translate(err, dErrors.CodeUserNotFound, "failed to store reset code")
	}

	if s.mailer != nil {
		delivery := notify.Delivery{
			Channel:     notify.ChannelEmail,
			Destination: user.Email,
			Message: fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.",
				code, int(s.cfg.PasswordResetTTL.Minutes())),
		}
		if err := s.mailer.Send(ctx, delivery); err != nil {
			s.logger.WarnContext(ctx, "password reset code not delivered",
				"user_id", user.ID.String(),
				"error", err,
			)
		}
	}

	s.logAudit(ctx, audit.EventPasswordResetIssued,
		"user_id", user.ID.String(),
		"email", user.Email,
	)
	return nil
}

// ResetPassword redeems a reset code. The pending code is cleared on success,
// on expiry and after too many wrong guesses. Success signs the account out
// everywhere.
func (s *Service) ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.authFailure(ctx, "reset_unknown_email", false, "email", req.Email)
			return invalidResetCode()
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	hash, err := secrets.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	now := requesttime.Now(ctx)
	submitted := strings.TrimSpace(req.Code)

	var outcome error
	_, err = s.users.Execute(ctx, user.ID,
		func(u *models.User) error {
			if u.PasswordReset == nil {
				return invalidResetCode()
			}
			return nil
		},
		func(u *models.User) {
			outcome = applyResetAttempt(u, submitted, hash, now)
		},
	)
	if err == nil {
		err = outcome
	}
	if err != nil {
		err = translate(err, dErrors.CodeUserNotFound, "failed to reset password")
		s.authFailure(ctx, string(dErrors.CodeOf(err)), dErrors.HasCode(err, dErrors.CodeInternal),
			"user_id", user.ID.String(),
			"email", user.Email,
		)
		return err
	}

	revoked, err := s.sessions.DeleteByUser(ctx, user.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke sessions after password reset",
			"error", err,
			"user_id", user.ID.String(),
		)
	}
	s.logAudit(ctx, audit.EventPasswordReset,
		"user_id", user.ID.String(),
		"email", user.Email,
		"sessions_revoked", revoked,
	)
	s.addSessionsRevoked(revoked)
	return nil
}

func applyResetAttempt(u *models.User, submitted, hash string, now time.Time) error {
	c := u.PasswordReset
	u.UpdatedAt = now
	switch {
	case c.IsExpired(now):
		u.PasswordReset = nil
		return invalidResetCode()
	case !token.Equal(c.Token, submitted):
		c.Attempts++
		if c.Attempts >= maxResetAttempts {
			u.PasswordReset = nil
		}
		return invalidResetCode()
	default:
		u.PasswordHash = hash
		u.PasswordReset = nil
		return nil
	}
}
