package notify

import (
	"context"
	"log/slog"

	"warden/pkg/platform/privacy"
)

// LogSender writes deliveries to the log instead of sending them. It is the
// sender used when no relay is configured. Message bodies are only logged
// when IncludeBody is set, which must stay off outside development.
type LogSender struct {
	Channel     Channel
	Logger      *slog.Logger
	IncludeBody bool
}

func (s LogSender) Send(ctx context.Context, destination, message string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	args := []any{
		"channel", string(s.Channel),
		"destination", privacy.MaskContact(destination),
	}
	if s.IncludeBody {
		args = append(args, "message", message)
	}
	logger.InfoContext(ctx, "notification logged", args...)
	return nil
}
