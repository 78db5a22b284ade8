package audit

import (
	"context"
	"log/slog"

	id "warden/pkg/domain"
	"warden/pkg/platform/attrs"
	"warden/pkg/platform/middleware/requesttime"
	"warden/pkg/requestcontext"
)

// Emitter persists audit events. publisher.Publisher implements it.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Logger writes each audit event twice: as an slog line tagged
// log_type=audit and, when an Emitter is set, as a stored Event.
// Either destination may be nil.
type Logger struct {
	text    *slog.Logger
	emitter Emitter
}

func NewLogger(text *slog.Logger, emitter Emitter) *Logger {
	return &Logger{text: text, emitter: emitter}
}

// Log records action with slog-style key/value attributes. The keys user_id,
// tenant_id, email, decision, reason and synthetic are lifted into the
// stored Event; the request id is taken from ctx.
//
//	l.Log(ctx, string(audit.EventTenantSelected), "user_id", uid.String(), "tenant_id", tid.String())
func (l *Logger) Log(ctx context.Context, action string, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}

	if l.text != nil {
		l.text.InfoContext(ctx, action, append(attributes, "event", action, "log_type", "audit")...)
	}
	if l.emitter == nil {
		return
	}

	event := eventFrom(action, attributes)
	event.RequestID = requestID
	event.Timestamp = requesttime.Now(ctx)
	if err := l.emitter.Emit(ctx, event); err != nil && l.text != nil {
		l.text.ErrorContext(ctx, "failed to emit audit event", "error", err, "event", action)
	}
}

// eventFrom maps well-known attribute keys onto Event fields. Ids that do not
// parse are left zero; Subject keeps the raw user_id either way.
func eventFrom(action string, attributes []any) Event {
	subject := attrs.ExtractString(attributes, "user_id")
	userID, _ := id.ParseUserID(subject) //nolint:errcheck // zero id on parse failure

	var tenantID *id.TenantID
	if tid, err := id.ParseTenantID(attrs.ExtractString(attributes, "tenant_id")); err == nil {
		tenantID = &tid
	}

	return Event{
		UserID:    userID,
		TenantID:  tenantID,
		Subject:   subject,
		Action:    action,
		Decision:  attrs.ExtractString(attributes, "decision"),
		Reason:    attrs.ExtractString(attributes, "reason"),
		Email:     attrs.ExtractString(attributes, "email"),
		Synthetic: attrs.ExtractBool(attributes, "synthetic"),
	}
}
