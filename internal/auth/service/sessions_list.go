package service

import (
	"context"
	"slices"

	"warden/internal/auth/models"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/middleware/requesttime"
)

// maxListedSessions caps the listing response only. Revocation always walks
// the full set.
const maxListedSessions = 100

// ListSessions returns up to maxListedSessions unexpired sessions, most
// recently seen first. Sessions still waiting on an OTP are included and
// flagged.
func (s *Service) ListSessions(ctx context.Context, userID id.UserID, currentSessionID id.SessionID) (*models.SessionsResult, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUserNotAuthenticated, "user ID required")
	}

	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}

	now := requesttime.Now(ctx)
	sessions = slices.DeleteFunc(sessions, func(sess *models.Session) bool {
		return sess == nil || sess.IsExpired(now)
	})
	slices.SortStableFunc(sessions, func(a, b *models.Session) int {
		return b.LastSeenAt.Compare(a.LastSeenAt)
	})
	if len(sessions) > maxListedSessions {
		sessions = sessions[:maxListedSessions]
	}

	out := make([]models.SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, summarize(sess, sess.ID == currentSessionID))
	}
	return &models.SessionsResult{Sessions: out}, nil
}

func summarize(sess *models.Session, current bool) models.SessionSummary {
	sum := models.SessionSummary{
		SessionID:    sess.ID.String(),
		Device:       sess.Client.DisplayName(),
		IP:           sess.Client.IP,
		Location:     sess.Client.Geo,
		CreatedAt:    sess.CreatedAt,
		LastActivity: sess.LastSeenAt,
		ExpiresAt:    sess.ExpiresAt,
		IsCurrent:    current,
		PendingOTP:   sess.OTPNeeded,
	}
	if sess.TenantID != nil {
		sum.TenantID = sess.TenantID.String()
	}
	return sum
}
