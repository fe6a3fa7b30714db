package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smartcommute/smartcommute/internal/commute"
	"github.com/smartcommute/smartcommute/internal/notify"
)

// addKeywords introduce a stop in free text, checked in order.
var addKeywords = []string{"add", "stop at", "stop by"}

// handleText interprets a free-text message.
func (b *Bot) handleText(ctx context.Context, chatID int64, text string) error {
	lower := strings.ToLower(strings.TrimSpace(text))

	for _, keyword := range addKeywords {
		_, location, found := strings.Cut(lower, keyword)
		if !found {
			continue
		}
		location = strings.TrimSpace(location)
		if location == "" {
			continue
		}

		escaped := notify.EscapeMarkdown(location)
		if err := b.route.AddStop(location); errors.Is(err, commute.ErrStopExists) {
			return b.reply(ctx, chatID, fmt.Sprintf("⚠️ Stop *%s* already exists!", escaped))
		} else if err != nil {
			return b.reply(ctx, chatID, "⚠️ "+err.Error())
		}

		b.logger.Info().Str("stop", location).Msg("stop added")
		return b.reply(ctx, chatID, fmt.Sprintf("✅ Added: *%s*", escaped))
	}

	switch {
	case strings.Contains(lower, "clear") && strings.Contains(lower, "stop"):
		return b.cmdClear(ctx, chatID, "")
	case strings.Contains(lower, "status") || strings.Contains(lower, "info"):
		return b.cmdStatus(ctx, chatID, "")
	}

	return b.reply(ctx, chatID, fallbackText)
}
