package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes notifications to the log instead of delivering them.
// It backs dry runs.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify logs the message and always succeeds.
func (n LogNotifier) Notify(_ context.Context, msg Message) error {
	n.Logger.Info().
		Str("kind", string(msg.Kind)).
		Str("title", msg.Title).
		Str("body", msg.Body).
		Msg("notification (dry run)")
	return nil
}
