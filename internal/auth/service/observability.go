package service

import (
	"context"

	id "warden/pkg/domain"
	"warden/pkg/platform/attrs"
	"warden/pkg/platform/audit"
	"warden/pkg/requestcontext"
)

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	s.audit.Log(ctx, string(event), attributes...)
}

// authFailure logs a rejected credential or bearer and emits a denied audit
// record. isError marks failures caused by a dependency rather than the caller.
func (s *Service) authFailure(ctx context.Context, reason string, isError bool, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", audit.EventAuthFailed, "reason", reason, "log_type", "standard")
	if isError {
		s.logger.ErrorContext(ctx, string(audit.EventAuthFailed), args...)
	} else {
		s.logger.WarnContext(ctx, string(audit.EventAuthFailed), args...)
	}
	s.emitAuthFailure(ctx, reason, requestID, attributes)
}

func (s *Service) emitAuthFailure(ctx context.Context, reason, requestID string, attributes []any) {
	if s.auditPub == nil {
		return
	}
	userIDStr := attrs.ExtractString(attributes, "user_id")
	userID, _ := id.ParseUserID(userIDStr) //nolint:errcheck // best-effort extraction for audit
	if err := s.auditPub.Emit(ctx, audit.Event{
		UserID:    userID,
		Subject:   userIDStr,
		Action:    string(audit.EventAuthFailed),
		Decision:  "denied",
		Reason:    reason,
		Email:     attrs.ExtractString(attributes, "email"),
		RequestID: requestID,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit auth failure audit event", "error", err)
	}
}

func (s *Service) incrementLoginFailure(reason string) {
	if s.metrics != nil {
		s.metrics.IncrementLoginFailures(reason)
	}
}

func (s *Service) incrementResolveFailure(code string) {
	if s.metrics != nil {
		s.metrics.IncrementResolveFailures(code)
	}
}

func (s *Service) incrementUserCreated() {
	if s.metrics != nil {
		s.metrics.IncrementUsersCreated()
	}
}

func (s *Service) incrementSessionCreated() {
	if s.metrics != nil {
		s.metrics.IncrementSessionsCreated()
	}
}

func (s *Service) addSessionsRevoked(n int) {
	if s.metrics != nil && n > 0 {
		s.metrics.AddSessionsRevoked(n)
	}
}
