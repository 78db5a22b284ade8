package service

import (
	"context"
	"errors"

	"warden/internal/auth/models"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/sentinel"
)

// DestroyOtherSessions deletes every session of user except current and
// returns how many were removed. Rows are deleted one by one; a row that is
// already gone is skipped and a failing row does not stop the rest.
func (s *Service) DestroyOtherSessions(ctx context.Context, user *models.User, current *models.Session) (int, error) {
	if user == nil || current == nil {
		return 0, dErrors.New(dErrors.CodeUserNotAuthenticated, "authentication required")
	}
	if current.UserID != user.ID {
		return 0, dErrors.New(dErrors.CodeForbidden, "session does not belong to user")
	}

	sessions, err := s.sessions.ListByUser(ctx, user.ID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}

	destroyed := 0
	failed := 0
	for _, session := range sessions {
		if session.ID == current.ID {
			continue
		}
		if err := s.sessions.Delete(ctx, session.ID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			failed++
			s.logger.ErrorContext(ctx, "failed to delete session",
				"error", err,
				"session_id", session.ID.String(),
				"user_id", user.ID.String(),
			)
			continue
		}
		destroyed++
	}

	s.logAudit(ctx, audit.EventSessionsRevoked,
		"user_id", user.ID.String(),
		"kept_session_id", current.ID.String(),
		"destroyed", destroyed,
		"failed", failed,
	)
	s.addSessionsRevoked(destroyed)
	return destroyed, nil
}
