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

// Send issues a fresh login code for a pending session and delivers it over
// method. Any earlier challenge on the session is replaced. Delivery failures
// are logged and do not fail the call.
func (s *Service) Send(ctx context.Context, session *models.Session, method models.DeliveryMethod) (*models.Session, error) {
	if session == nil {
		return nil, dErrors.New(dErrors.CodeSessionNotFound, "session not found")
	}
	if !method.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "delivery method must be sms or email")
	}
	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, translateStoreErr(err, dErrors.CodeUserNotFound, "failed to load user")
	}

	now := requesttime.Now(ctx)
	code := s.tokens.NumericChallenge()
	var destination string
	updated, err := s.sessions.Execute(ctx, session.ID,
		func(sess *models.Session) error {
			if !sess.IsOTPPending() {
				return dErrors.New(dErrors.CodeOtpNotNeeded, "session does not need OTP verification")
			}
			d, err := destinationFor(user, method)
			if err != nil {
				return err
			}
			destination = d
			return nil
		},
		func(sess *models.Session) {
			sess.IssueOTPChallenge(models.NewChallenge(code, now, s.cfg.TTL))
		},
	)
	if err != nil {
		err = translateStoreErr(err, dErrors.CodeSessionNotFound, "failed to store OTP challenge")
		s.recordFailure(ctx, FlowLogin, session.UserID, err)
		return nil, err
	}

	delivery := notify.Delivery{
		Channel:     notify.Channel(method),
		Destination: destination,
		Message:     codeMessage(code, s.cfg.TTL),
	}
	if err := s.notifier.Send(ctx, delivery); err != nil {
		s.audit.Log(ctx, string(audit.EventOTPDeliveryFailed),
			"user_id", user.ID.String(),
			"flow", FlowLogin,
			"channel", string(method),
		)
	}

	s.audit.Log(ctx, string(audit.EventOTPSent),
		"user_id", user.ID.String(),
		"flow", FlowLogin,
		"channel", string(method),
	)
	if s.metrics != nil {
		s.metrics.IncrementOTPSent(FlowLogin, string(method))
	}
	return updated, nil
}

// Verify checks a submitted login code against the session carrying bearer.
// Expiry and mismatch are reported separately. The challenge is dropped on
// expiry and once MaxAttempts wrong codes have been tried; success clears
// OTPNeeded in the same write.
func (s *Service) Verify(ctx context.Context, bearer, code string) (*models.Session, error) {
	code = strings.TrimSpace(code)
	session, err := s.sessions.FindByToken(ctx, bearer)
	if err != nil {
		return nil, translateStoreErr(err, dErrors.CodeSessionNotFound, "failed to load session")
	}

	now := requesttime.Now(ctx)
	if session.IsExpired(now) {
		return nil, dErrors.New(dErrors.CodeSessionExpired, "session expired")
	}

	var outcome error
	updated, err := s.sessions.Execute(ctx, session.ID,
		func(sess *models.Session) error {
			if sess.AccessToken != session.AccessToken {
				return dErrors.New(dErrors.CodeSessionNotFound, "session not found")
			}
			if !sess.IsOTPPending() {
				return dErrors.New(dErrors.CodeOtpNotNeeded, "session does not need OTP verification")
			}
			if sess.OTPChallenge == nil {
				return dErrors.New(dErrors.CodeInvalidOtp, "no code has been sent for this session")
			}
			return nil
		},
		func(sess *models.Session) {
			outcome = s.applyLoginAttempt(sess, code, now)
		},
	)
	if err != nil {
		err = translateStoreErr(err, dErrors.CodeSessionNotFound, "failed to verify OTP")
		s.recordFailure(ctx, FlowLogin, session.UserID, err)
		return nil, err
	}
	if outcome != nil {
		s.recordFailure(ctx, FlowLogin, session.UserID, outcome)
		return nil, outcome
	}

	s.audit.Log(ctx, string(audit.EventOTPVerified),
		"user_id", updated.UserID.String(),
		"flow", FlowLogin,
		"decision", "granted",
	)
	if s.metrics != nil {
		s.metrics.IncrementOTPVerified(FlowLogin)
	}
	return updated, nil
}

func (s *Service) applyLoginAttempt(sess *models.Session, code string, now time.Time) error {
	c := sess.OTPChallenge
	switch {
	case c.IsExpired(now):
		sess.ClearOTPChallenge()
		return dErrors.New(dErrors.CodeOtpExpired, "code expired, request a new one")
	case !token.Equal(c.Token, code):
		c.Attempts++
		if c.Attempts >= s.cfg.MaxAttempts {
			sess.ClearOTPChallenge()
		}
		return dErrors.New(dErrors.CodeInvalidOtp, "invalid code")
	default:
		sess.MarkOTPVerified(now)
		return nil
	}
}
