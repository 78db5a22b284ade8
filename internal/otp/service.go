// Package otp runs the two one-time code flows: the login step that turns a
// pending session into a full principal, and the confirmation step that
// guards turning account OTP on or off.
package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"warden/internal/auth/models"
	"warden/internal/auth/token"
	"warden/internal/notify"
	"warden/internal/platform/metrics"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/sentinel"
)

// Flow labels used in metrics and audit records.
const (
	FlowLogin        = "login"
	FlowStatusChange = "status_change"
)

const (
	defaultTTL         = 10 * time.Minute
	defaultMaxAttempts = 5
)

type SessionStore interface {
	FindByToken(ctx context.Context, accessToken string) (*models.Session, error)
	Execute(ctx context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error)
}

type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	Execute(ctx context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error)
}

// Dispatcher delivers codes. Failures are already logged by the dispatcher.
type Dispatcher interface {
	Send(ctx context.Context, d notify.Delivery) error
	SendAll(ctx context.Context, deliveries ...notify.Delivery) int
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Config bounds challenge lifetime and the number of wrong guesses a pending
// challenge survives.
type Config struct {
	TTL         time.Duration
	MaxAttempts int
}

type Service struct {
	sessions SessionStore
	users    UserStore
	notifier Dispatcher
	tokens   token.Generator
	cfg      Config
	logger   *slog.Logger
	audit    *audit.Logger
	metrics  *metrics.Metrics
	auditPub AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditPub = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTokenGenerator(g token.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.tokens = g
		}
	}
}

func New(sessions SessionStore, users UserStore, notifier Dispatcher, cfg Config, opts ...Option) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	s := &Service{
		sessions: sessions,
		users:    users,
		notifier: notifier,
		tokens:   token.Random{},
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.audit = audit.NewLogger(s.logger, s.auditPub)
	return s
}

func codeMessage(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(ttl.Minutes()))
}

func destinationFor(user *models.User, method models.DeliveryMethod) (string, error) {
	switch method {
	case models.DeliverySMS:
		if !user.HasPhone() {
			return "", dErrors.New(dErrors.CodeUserHasNoPhoneNumber, "no phone number on file")
		}
		return user.Phone, nil
	case models.DeliveryEmail:
		if !user.HasEmail() {
			return "", dErrors.New(dErrors.CodeUserHasNoEmail, "no email address on file")
		}
		return user.Email, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "delivery method must be sms or email")
	}
}

// translateStoreErr maps store failures for the given entity; domain errors
// raised inside validate pass through untouched.
func translateStoreErr(err error, notFound dErrors.Code, action string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(notFound, string(notFound))
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeConflict, "concurrent update, retry")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}

func (s *Service) recordFailure(ctx context.Context, flow string, userID id.UserID, err error) {
	code := dErrors.CodeOf(err)
	s.audit.Log(ctx, string(audit.EventOTPFailed),
		"user_id", userID.String(),
		"flow", flow,
		"decision", "denied",
		"reason", string(code),
	)
	if s.metrics != nil {
		s.metrics.IncrementOTPFailed(flow, string(code))
	}
}
