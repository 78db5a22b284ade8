package service

import (
	"context"
	"errors"

	"warden/internal/auth/email"
	"warden/internal/auth/models"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/middleware/requesttime"
	"warden/pkg/platform/sentinel"
	"warden/pkg/secrets"
)

// Register creates a USER account with a password and opens its first session.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest, client models.ClientContext) (*models.User, *models.Session, error) {
	hash, err := secrets.Hash(req.Password)
	if err != nil {
		return nil, nil, err
	}
	now := requesttime.Now(ctx)
	user, err := models.NewUser(id.NewUserID(), req.Email, models.RoleUser, now)
	if err != nil {
		return nil, nil, err
	}
	user.PasswordHash = hash
	user.Phone = req.Phone
	user.DisplayName = req.DisplayName
	if user.DisplayName == "" {
		user.DisplayName = email.DisplayNameFromEmail(user.Email)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	s.logAudit(ctx, audit.EventUserCreated,
		"user_id", user.ID.String(),
		"email", user.Email,
		"method", "password",
	)
	s.incrementUserCreated()

	session, err := s.CreateSession(ctx, user, client, false)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Login checks an email and password. Unknown emails and wrong passwords fail
// the same way so callers cannot probe which accounts exist.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest, client models.ClientContext) (*models.Session, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.authFailure(ctx, "unknown_email", false, "email", req.Email)
			s.incrementLoginFailure(string(dErrors.CodeInvalidCredentials))
			return nil, dErrors.New(dErrors.CodeInvalidCredentials, "invalid credentials")
		}
		s.authFailure(ctx, "user_lookup_failed", true, "email", req.Email, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if err := secrets.Verify(req.Password, user.PasswordHash); err != nil {
		s.authFailure(ctx, "bad_password", dErrors.HasCode(err, dErrors.CodeInternal),
			"user_id", user.ID.String(),
			"email", user.Email,
		)
		s.incrementLoginFailure(string(dErrors.CodeOf(err)))
		return nil, err
	}
	if !user.IsActive() {
		s.authFailure(ctx, "user_not_active", false, "user_id", user.ID.String(), "email", user.Email)
		s.incrementLoginFailure(string(dErrors.CodeUserNotActive))
		return nil, dErrors.New(dErrors.CodeUserNotActive, "account is not active")
	}

	session, err := s.CreateSession(ctx, user, client, req.OTP)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventUserLoggedIn,
		"user_id", user.ID.String(),
		"email", user.Email,
		"method", "password",
		"otp_needed", session.OTPNeeded,
	)
	return session, nil
}

// LoginOrCreateExternal signs in an identity already verified by an upstream
// provider. A known (provider, subject) wins; otherwise the account with the
// same email is linked, and failing that a new USER account is created.
func (s *Service) LoginOrCreateExternal(ctx context.Context, identity models.ExternalIdentity, client models.ClientContext, otpConsidered bool) (*models.User, *models.Session, error) {
	if identity.Provider == "" || identity.Subject == "" {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "provider and subject are required")
	}

	user, err := s.findOrCreateExternalUser(ctx, identity)
	if err != nil {
		return nil, nil, err
	}
	if !user.IsActive() {
		s.authFailure(ctx, "user_not_active", false, "user_id", user.ID.String(), "provider", identity.Provider)
		s.incrementLoginFailure(string(dErrors.CodeUserNotActive))
		return nil, nil, dErrors.New(dErrors.CodeUserNotActive, "account is not active")
	}

	session, err := s.CreateSession(ctx, user, client, otpConsidered)
	if err != nil {
		return nil, nil, err
	}
	s.logAudit(ctx, audit.EventUserLoggedIn,
		"user_id", user.ID.String(),
		"email", user.Email,
		"method", identity.Provider,
		"otp_needed", session.OTPNeeded,
	)
	return user, session, nil
}

func (s *Service) findOrCreateExternalUser(ctx context.Context, identity models.ExternalIdentity) (*models.User, error) {
	acct, err := s.users.FindExternalAccount(ctx, identity.Provider, identity.Subject)
	if err == nil {
		user, err := s.users.FindByID(ctx, acct.UserID)
		if err != nil {
			return nil, translate(err, dErrors.CodeUserNotFound, "failed to load linked user")
		}
		return user, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up external account")
	}

	user, err := s.users.FindByEmail(ctx, identity.Email)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		user, err = s.createExternalUser(ctx, identity)
		if err != nil {
			return nil, err
		}
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if err := s.users.CreateExternalAccount(ctx, &models.ExternalAccount{
		Provider:  identity.Provider,
		Subject:   identity.Subject,
		UserID:    user.ID,
		CreatedAt: requesttime.Now(ctx),
	}); err != nil && !errors.Is(err, sentinel.ErrAlreadyUsed) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to link external account")
	}
	s.logAudit(ctx, audit.EventExternalAccountLinked,
		"user_id", user.ID.String(),
		"email", user.Email,
		"provider", identity.Provider,
	)
	return user, nil
}

func (s *Service) createExternalUser(ctx context.Context, identity models.ExternalIdentity) (*models.User, error) {
	user, err := models.NewUser(id.NewUserID(), identity.Email, models.RoleUser, requesttime.Now(ctx))
	if err != nil {
		return nil, err
	}
	user.DisplayName = identity.Name
	if user.DisplayName == "" {
		user.DisplayName = email.DisplayNameFromEmail(user.Email)
	}
	user.PictureURL = identity.PictureURL

	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
		}
		// Lost a race with a concurrent sign-up for the same email.
		existing, findErr := s.users.FindByEmail(ctx, user.Email)
		if findErr != nil {
			return nil, translate(findErr, dErrors.CodeUserNotFound, "failed to load user")
		}
		return existing, nil
	}
	s.logAudit(ctx, audit.EventUserCreated,
		"user_id", user.ID.String(),
		"email", user.Email,
		"method", identity.Provider,
	)
	s.incrementUserCreated()
	return user, nil
}
