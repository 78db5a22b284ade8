package otp

import (
	"context"
	"strings"
	"time"

	"warden/internal/auth/models"
	"warden/internal/auth/token"
	"warden/internal/notify"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/middleware/requesttime"
)

func alreadyInState(enabled bool) error {
	if enabled {
		return dErrors.New(dErrors.CodeOtpAlreadyEnabled, "OTP is already enabled")
	}
	return dErrors.New(dErrors.CodeOtpAlreadyDisabled, "OTP is already disabled")
}

// RequestChange starts turning account OTP on or off. Asking for the state the
// account is already in is rejected and leaves any pending token alone.
// The confirmation code goes out over SMS and email at once; a failure on one
// channel never blocks the other.
func (s *Service) RequestChange(ctx context.Context, user *models.User, desired bool) (*models.Challenge, error) {
	if user == nil {
		return nil, dErrors.New(dErrors.CodeUserNotAuthenticated, "authentication required")
	}
	now := requesttime.Now(ctx)
	code := s.tokens.NumericChallenge()

	updated, err := s.users.Execute(ctx, user.ID,
		func(u *models.User) error {
			if u.OTPEnabled == desired {
				return alreadyInState(desired)
			}
			return nil
		},
		func(u *models.User) {
			u.OTPStatusChange = models.NewChallenge(code, now, s.cfg.TTL)
			u.UpdatedAt = now
		},
	)
	if err != nil {
		err = translateStoreErr(err, dErrors.CodeUserNotFound, "failed to store OTP change request")
		s.recordFailure(ctx, FlowStatusChange, user.ID, err)
		return nil, err
	}

	message := codeMessage(code, s.cfg.TTL)
	var deliveries []notify.Delivery
	if updated.HasPhone() {
		deliveries = append(deliveries, notify.Delivery{Channel: notify.ChannelSMS, Destination: updated.Phone, Message: message})
	}
	if updated.HasEmail() {
		deliveries = append(deliveries, notify.Delivery{Channel: notify.ChannelEmail, Destination: updated.Email, Message: message})
	}
	if failed := s.notifier.SendAll(ctx, deliveries...); failed > 0 {
		s.audit.Log(ctx, string(audit.EventOTPDeliveryFailed),
			"user_id", updated.ID.String(),
			"flow", FlowStatusChange,
			"failed_channels", failed,
		)
	}

	s.audit.Log(ctx, string(audit.EventOTPChangeRequested),
		"user_id", updated.ID.String(),
		"flow", FlowStatusChange,
		"desired_enabled", desired,
	)
	if s.metrics != nil {
		for _, d := range deliveries {
			s.metrics.IncrementOTPSent(FlowStatusChange, string(d.Channel))
		}
	}
	return updated.OTPStatusChange, nil
}

// VerifyChange confirms a pending enablement change in one read-modify-write.
// Missing, expired and mismatched tokens all fail InvalidOtp. Every terminal
// path clears the pending token: success, an account already in the desired
// state, expiry, and MaxAttempts wrong guesses.
func (s *Service) VerifyChange(ctx context.Context, user *models.User, desired bool, submitted string) (*models.User, error) {
	if user == nil {
		return nil, dErrors.New(dErrors.CodeUserNotAuthenticated, "authentication required")
	}
	submitted = strings.TrimSpace(submitted)
	now := requesttime.Now(ctx)

	var outcome error
	updated, err := s.users.Execute(ctx, user.ID,
		func(u *models.User) error {
			if u.OTPStatusChange == nil {
				return dErrors.New(dErrors.CodeInvalidOtp, "invalid or expired code")
			}
			return nil
		},
		func(u *models.User) {
			outcome = s.applyChangeAttempt(u, desired, submitted, now)
			u.UpdatedAt = now
		},
	)
	if err != nil {
		err = translateStoreErr(err, dErrors.CodeUserNotFound, "failed to verify OTP change")
		s.recordFailure(ctx, FlowStatusChange, user.ID, err)
		return nil, err
	}
	if outcome != nil {
		s.recordFailure(ctx, FlowStatusChange, user.ID, outcome)
		return nil, outcome
	}

	s.audit.Log(ctx, string(audit.EventOTPChangeApplied),
		"user_id", updated.ID.String(),
		"flow", FlowStatusChange,
		"decision", "granted",
		"otp_enabled", updated.OTPEnabled,
	)
	if s.metrics != nil {
		s.metrics.IncrementOTPVerified(FlowStatusChange)
	}
	return updated, nil
}

func (s *Service) applyChangeAttempt(u *models.User, desired bool, submitted string, now time.Time) error {
	c := u.OTPStatusChange
	switch {
	case c.IsExpired(now):
		u.OTPStatusChange = nil
		return dErrors.New(dErrors.CodeInvalidOtp, "invalid or expired code")
	case !token.Equal(c.Token, submitted):
		c.Attempts++
		if c.Attempts >= s.cfg.MaxAttempts {
			u.OTPStatusChange = nil
		}
		return dErrors.New(dErrors.CodeInvalidOtp, "invalid or expired code")
	case u.OTPEnabled == desired:
		u.OTPStatusChange = nil
		return alreadyInState(desired)
	default:
		u.OTPEnabled = desired
		u.OTPStatusChange = nil
		return nil
	}
}
