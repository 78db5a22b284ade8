package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"warden/pkg/platform/middleware/requesttime"
	"warden/pkg/requestcontext"
)

type recordingEmitter struct {
	events []Event
	err    error
}

func (r *recordingEmitter) Emit(_ context.Context, event Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

type LoggerSuite struct {
	suite.Suite
	emitter *recordingEmitter
	buf     *bytes.Buffer
	logger  *Logger
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerSuite))
}

func (s *LoggerSuite) SetupTest() {
	s.emitter = &recordingEmitter{}
	s.buf = &bytes.Buffer{}
	s.logger = NewLogger(slog.New(slog.NewJSONHandler(s.buf, nil)), s.emitter)
}

func (s *LoggerSuite) only() Event {
	s.Require().Len(s.emitter.events, 1)
	return s.emitter.events[0]
}

func (s *LoggerSuite) TestKnownAttributesAreLifted() {
	const (
		userID   = "550e8400-e29b-41d4-a716-446655440001"
		tenantID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	)
	now := time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC)
	ctx := requesttime.WithTime(requestcontext.WithRequestID(context.Background(), "req-7"), now)

	s.logger.Log(ctx, string(EventSyntheticMembership),
		"user_id", userID,
		"tenant_id", tenantID,
		"email", "root@warden.local",
		"decision", "granted",
		"reason", "global_admin",
		"synthetic", true,
	)

	e := s.only()
	s.Equal(userID, e.UserID.String())
	s.Equal(userID, e.Subject)
	s.Require().NotNil(e.TenantID)
	s.Equal(tenantID, e.TenantID.String())
	s.Equal("root@warden.local", e.Email)
	s.Equal("granted", e.Decision)
	s.Equal("global_admin", e.Reason)
	s.True(e.Synthetic)
	s.Equal("req-7", e.RequestID)
	s.Equal(now, e.Timestamp)
	s.Equal(string(EventSyntheticMembership), e.Action)
}

func (s *LoggerSuite) TestTextLineIsTaggedAsAudit() {
	s.logger.Log(requestcontext.WithRequestID(context.Background(), "req-9"), "user_created", "user_id", "u")

	out := s.buf.String()
	s.Contains(out, `"log_type":"audit"`)
	s.Contains(out, `"event":"user_created"`)
	s.Contains(out, `"request_id":"req-9"`)
}

func (s *LoggerSuite) TestUnparseableIdsStayZero() {
	s.logger.Log(context.Background(), "user_created", "user_id", "not-a-uuid", "tenant_id", "nope")

	e := s.only()
	s.True(e.UserID.IsNil())
	s.Equal("not-a-uuid", e.Subject)
	s.Nil(e.TenantID)
	s.False(e.Synthetic)
	s.Empty(e.RequestID)
}

func (s *LoggerSuite) TestEmitFailureIsLoggedNotReturned() {
	s.emitter.err = errors.New("store down")

	s.NotPanics(func() { s.logger.Log(context.Background(), "user_created", "user_id", "u") })
	s.Empty(s.emitter.events)
	s.Contains(s.buf.String(), "failed to emit audit event")
}

func (s *LoggerSuite) TestNilDestinations() {
	s.NotPanics(func() { NewLogger(nil, nil).Log(context.Background(), "user_created") })

	emitter := &recordingEmitter{}
	NewLogger(nil, emitter).Log(context.Background(), "user_created", "user_id", "u")
	s.Len(emitter.events, 1)
}
