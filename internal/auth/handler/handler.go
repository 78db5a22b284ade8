package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,OTP

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"warden/internal/auth/device"
	"warden/internal/auth/models"
	"warden/internal/authz"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/httputil"
	authmw "warden/pkg/platform/middleware/auth"
	"warden/pkg/requestcontext"
)

// Service defines the account and session operations behind the auth endpoints.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest, client models.ClientContext) (*models.User, *models.Session, error)
	Login(ctx context.Context, req *models.LoginRequest, client models.ClientContext) (*models.Session, error)
	LoginOrCreateExternal(ctx context.Context, identity models.ExternalIdentity, client models.ClientContext, otpConsidered bool) (*models.User, *models.Session, error)
	LookupSession(ctx context.Context, bearer string) (*models.Session, error)
	RefreshSession(ctx context.Context, session *models.Session) (*models.Session, error)
	Logout(ctx context.Context, session *models.Session) error
	ListSessions(ctx context.Context, userID id.UserID, currentSessionID id.SessionID) (*models.SessionsResult, error)
	DestroyOtherSessions(ctx context.Context, user *models.User, current *models.Session) (int, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error
}

// OTP defines the login and status-change OTP flows.
type OTP interface {
	Send(ctx context.Context, session *models.Session, method models.DeliveryMethod) (*models.Session, error)
	Verify(ctx context.Context, bearer, code string) (*models.Session, error)
	RequestChange(ctx context.Context, user *models.User, desired bool) (*models.Challenge, error)
	VerifyChange(ctx context.Context, user *models.User, desired bool, submitted string) (*models.User, error)
}

// Handler serves the auth endpoints. Route protection is applied by the
// caller: Register mounts public routes, RegisterPending the token-only OTP
// routes and RegisterAuthenticated the routes behind a USER gate.
type Handler struct {
	auth   Service
	otp    OTP
	logger *slog.Logger
}

func New(auth Service, otp OTP, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, otp: otp, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/external/callback", h.HandleExternalCallback)
	r.Post("/auth/password/forgot", h.HandleForgotPassword)
	r.Post("/auth/password/reset", h.HandleResetPassword)
}

func (h *Handler) RegisterPending(r chi.Router) {
	r.Post("/auth/otp/send", h.HandleSendOTP)
	r.Post("/auth/otp/verify", h.HandleVerifyOTP)
}

func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Get("/me", h.HandleMe)
	r.Get("/me/sessions", h.HandleListSessions)
	r.Post("/me/sessions/destroy-others", h.HandleDestroyOtherSessions)
	r.Post("/me/otp/request-change", h.HandleRequestOTPChange)
	r.Post("/me/otp/verify-change", h.HandleVerifyOTPChange)
	r.Post("/auth/logout", h.HandleLogout)
	r.Post("/auth/refresh", h.HandleRefresh)
}

// HandleRegister implements POST /auth/register.
//
// Input: { "email": "...", "password": "...", "phone": "+15550100", "display_name": "..." }
// Output: { "access_token": "st_...", "token_type": "Bearer", "expires_at": "...", "otp_needed": false }
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, session, err := h.auth.Register(ctx, req, device.ClientContext(ctx))
	if err != nil {
		h.logFailure(ctx, "register failed", err, requestID)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		"request_id", requestID,
		"user_id", user.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, models.NewSessionResult(session))
}

// HandleLogin implements POST /auth/login. Every credential failure answers
// with the same invalid_credentials error.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, err := h.auth.Login(ctx, req, device.ClientContext(ctx))
	if err != nil {
		h.logFailure(ctx, "login failed", err, requestID)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "login successful",
		"request_id", requestID,
		"user_id", session.UserID.String(),
		"otp_needed", session.OTPNeeded,
	)
	httputil.WriteJSON(w, http.StatusOK, models.NewSessionResult(session))
}

// HandleExternalCallback implements POST /auth/external/callback for
// identities an upstream provider already verified.
func (h *Handler) HandleExternalCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.ExternalCallbackRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, session, err := h.auth.LoginOrCreateExternal(ctx, req.Identity(), device.ClientContext(ctx), req.OTP)
	if err != nil {
		h.logFailure(ctx, "external login failed", err, requestID, "provider", req.Provider)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "external login successful",
		"request_id", requestID,
		"user_id", user.ID.String(),
		"provider", req.Provider,
	)
	httputil.WriteJSON(w, http.StatusOK, models.NewSessionResult(session))
}

// HandleForgotPassword implements POST /auth/password/forgot. The answer is
// the same whether or not the email belongs to an account.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.ForgotPasswordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.auth.RequestPasswordReset(ctx, req.Email); err != nil {
		h.logFailure(ctx, "password reset request failed", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, models.MessageResult{Message: "if the account exists, a reset code has been sent"})
}

// HandleResetPassword implements POST /auth/password/reset.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.ResetPasswordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.auth.ResetPassword(ctx, req); err != nil {
		h.logFailure(ctx, "password reset failed", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.MessageResult{Message: "password updated"})
}

// HandleSendOTP implements POST /auth/otp/send for a session still waiting on
// OTP verification.
func (h *Handler) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SendOTPRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, err := h.auth.LookupSession(ctx, bearer(r))
	if err != nil {
		h.logFailure(ctx, "otp send rejected", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	if _, err := h.otp.Send(ctx, session, req.Method); err != nil {
		h.logFailure(ctx, "otp send failed", err, requestID, "method", string(req.Method))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.MessageResult{Message: "verification code sent"})
}

// HandleVerifyOTP implements POST /auth/otp/verify.
func (h *Handler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.VerifyOTPRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, err := h.otp.Verify(ctx, bearer(r), req.Code)
	if err != nil {
		h.logFailure(ctx, "otp verification failed", err, requestID)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "otp verified",
		"request_id", requestID,
		"user_id", session.UserID.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, models.NewSessionResult(session))
}

// HandleMe implements GET /me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, session, ok := h.principal(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewUserResult(user, session))
}

// HandleListSessions implements GET /me/sessions.
func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	user, session, ok := h.principal(w, r)
	if !ok {
		return
	}

	res, err := h.auth.ListSessions(ctx, user.ID, session.ID)
	if err != nil {
		h.logFailure(ctx, "failed to list sessions", err, requestID, "user_id", user.ID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleDestroyOtherSessions implements POST /me/sessions/destroy-others.
func (h *Handler) HandleDestroyOtherSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	user, session, ok := h.principal(w, r)
	if !ok {
		return
	}

	n, err := h.auth.DestroyOtherSessions(ctx, user, session)
	if err != nil {
		h.logFailure(ctx, "failed to destroy other sessions", err, requestID, "user_id", user.ID.String())
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "other sessions destroyed",
		"request_id", requestID,
		"user_id", user.ID.String(),
		"count", n,
	)
	httputil.WriteJSON(w, http.StatusOK, models.DestroyOthersResult{DestroyedCount: n})
}

// HandleLogout implements POST /auth/logout. Only the presenting session ends.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	_, session, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.auth.Logout(ctx, session); err != nil {
		h.logFailure(ctx, "logout failed", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRefresh implements POST /auth/refresh. The old token stops working.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	_, session, ok := h.principal(w, r)
	if !ok {
		return
	}

	rotated, err := h.auth.RefreshSession(ctx, session)
	if err != nil {
		h.logFailure(ctx, "session refresh failed", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewSessionResult(rotated))
}

// HandleRequestOTPChange implements POST /me/otp/request-change.
//
// Input: { "enabled": true }
func (h *Handler) HandleRequestOTPChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	user, _, ok := h.principal(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.OTPChangeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if _, err := h.otp.RequestChange(ctx, user, *req.Enabled); err != nil {
		h.logFailure(ctx, "otp change request failed", err, requestID, "user_id", user.ID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, models.MessageResult{Message: "verification code sent"})
}

// HandleVerifyOTPChange implements POST /me/otp/verify-change.
//
// Input: { "enabled": true, "token": "123456" }
func (h *Handler) HandleVerifyOTPChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	user, _, ok := h.principal(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.OTPChangeVerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	updated, err := h.otp.VerifyChange(ctx, user, *req.Enabled, req.Token)
	if err != nil {
		h.logFailure(ctx, "otp change verification failed", err, requestID, "user_id", user.ID.String())
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "otp setting changed",
		"request_id", requestID,
		"user_id", updated.ID.String(),
		"otp_enabled", updated.OTPEnabled,
	)
	httputil.WriteJSON(w, http.StatusOK, models.OTPChangeResult{OTPEnabled: updated.OTPEnabled})
}

// principal reads the caller admitted by the gate. Reaching a handler without
// one means the route was mounted outside a gate.
func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (*models.User, *models.Session, bool) {
	user := authz.UserFrom(r.Context())
	session := authz.SessionFrom(r.Context())
	if user == nil || session == nil {
		h.logger.ErrorContext(r.Context(), "authenticated route reached without principal",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUserNotAuthenticated, "authentication required"))
		return nil, nil, false
	}
	return user, session, true
}

// logFailure logs at error level only for internal failures.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, requestID string, attrs ...any) {
	attrs = append([]any{"error", err, "request_id", requestID}, attrs...)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}

func bearer(r *http.Request) string {
	if token, ok := authmw.ExtractBearer(r); ok {
		return token
	}
	return requestcontext.Bearer(r.Context())
}
