// Package service owns identities and sessions: password and external login,
// registration, bearer resolution, session lifecycle and password reset.
package service

import (
	"context"
	"log/slog"
	"time"

	"warden/internal/auth/models"
	"warden/internal/auth/token"
	"warden/internal/notify"
	"warden/internal/platform/metrics"
	id "warden/pkg/domain"
	"warden/pkg/platform/audit"
)

const (
	defaultSessionTTL       = 7 * 24 * time.Hour
	defaultPasswordResetTTL = 15 * time.Minute
	maxResetAttempts        = 5
)

// UserStore defines the persistence interface for user data.
// Error Contract: Find methods return sentinel.ErrNotFound when the entity doesn't
// exist; Create returns sentinel.ErrAlreadyUsed for a taken email.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Execute(ctx context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error)
	FindExternalAccount(ctx context.Context, provider, subject string) (*models.ExternalAccount, error)
	CreateExternalAccount(ctx context.Context, acct *models.ExternalAccount) error
}

// SessionStore defines the persistence interface for session data.
// Error Contract: Find methods and Delete return sentinel.ErrNotFound when the
// session doesn't exist.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	FindByToken(ctx context.Context, accessToken string) (*models.Session, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
	DeleteByUser(ctx context.Context, userID id.UserID) (int, error)
	Execute(ctx context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error)
}

// Mailer delivers password reset codes.
type Mailer interface {
	Send(ctx context.Context, d notify.Delivery) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

type Config struct {
	SessionTTL       time.Duration
	PasswordResetTTL time.Duration
}

type Service struct {
	users    UserStore
	sessions SessionStore
	mailer   Mailer
	tokens   token.Generator
	cfg      Config
	logger   *slog.Logger
	audit    *audit.Logger
	auditPub AuditPublisher
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPub = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithMailer(m Mailer) Option {
	return func(s *Service) {
		s.mailer = m
	}
}

func WithTokenGenerator(g token.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.tokens = g
		}
	}
}

func New(users UserStore, sessions SessionStore, cfg Config, opts ...Option) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.PasswordResetTTL <= 0 {
		cfg.PasswordResetTTL = defaultPasswordResetTTL
	}
	svc := &Service{
		users:    users,
		sessions: sessions,
		tokens:   token.Random{},
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	svc.audit = audit.NewLogger(svc.logger, svc.auditPub)
	return svc
}

// SessionTTL is the validity window applied to new and refreshed sessions.
func (s *Service) SessionTTL() time.Duration {
	return s.cfg.SessionTTL
}
