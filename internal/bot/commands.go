package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/smartcommute/smartcommute/internal/alert"
	"github.com/smartcommute/smartcommute/internal/commute"
	"github.com/smartcommute/smartcommute/internal/notify"
	"github.com/smartcommute/smartcommute/internal/traffic"
	"github.com/smartcommute/smartcommute/internal/worker"
)

const fallbackText = "I'm not sure what you mean. Try:\n" +
	"• `/status` - See your settings\n" +
	"• `/add <stop>` - Add a stop\n" +
	"• `/help` - See all commands"

func (b *Bot) cmdStart(ctx context.Context, chatID int64, _ string) error {
	text := "🏠 *Welcome to Your Commute Assistant!*\n\n" +
		"I'll help you get home on time by monitoring traffic " +
		"and notifying you when to leave.\n\n" +
		"*Available Commands:*\n" +
		"• `/status` - Current commute info\n" +
		"• `/add <stop>` - Add stop on your way\n" +
		"• `/remove <stop>` - Remove a stop\n" +
		"• `/stops` - List all stops\n" +
		"• `/clear` - Clear all stops\n" +
		"• `/check` - Check traffic now\n\n" +
		"*Natural Language:*\n" +
		"You can also say:\n" +
		"• 'Add gym'\n" +
		"• 'Stop at grocery store'\n" +
		"• 'Clear all stops'\n\n" +
		fmt.Sprintf("I'll check traffic daily at *%s* and notify you when it's time to leave!", b.route.CheckTime())

	return b.reply(ctx, chatID, text)
}

func (b *Bot) cmdStatus(ctx context.Context, chatID int64, _ string) error {
	var sb strings.Builder
	sb.WriteString("📊 *Current Configuration*\n\n")
	fmt.Fprintf(&sb, "🏢 *Work:* %s\n", notify.EscapeMarkdown(b.route.WorkAddress()))
	fmt.Fprintf(&sb, "🏠 *Home:* %s\n", notify.EscapeMarkdown(b.route.HomeAddress()))
	fmt.Fprintf(&sb, "⏰ *Check time:* %s\n", b.route.CheckTime())
	fmt.Fprintf(&sb, "🎯 *Target arrival:* %s\n", b.route.DesiredArrival())
	fmt.Fprintf(&sb, "⏱️ *Buffer:* %d min\n\n", b.route.BufferMinutes())

	if stops := b.route.Stops(); len(stops) > 0 {
		sb.WriteString("📍 *Active stops:*\n")
		for i, stop := range stops {
			fmt.Fprintf(&sb, "   %d. %s\n", i+1, notify.EscapeMarkdown(stop))
		}
	} else {
		sb.WriteString("📍 *No stops configured*\n")
	}

	return b.reply(ctx, chatID, sb.String())
}

func (b *Bot) cmdAdd(ctx context.Context, chatID int64, args string) error {
	if args == "" {
		return b.reply(ctx, chatID, "Please specify a location.\nExample: `/add Whole Foods Market`")
	}

	escaped := notify.EscapeMarkdown(args)
	switch err := b.route.AddStop(args); {
	case errors.Is(err, commute.ErrStopExists):
		return b.reply(ctx, chatID, fmt.Sprintf("⚠️ Stop *%s* already exists!", escaped))
	case err != nil:
		return b.reply(ctx, chatID, "⚠️ "+err.Error())
	}

	b.logger.Info().Str("stop", args).Msg("stop added")
	return b.reply(ctx, chatID, fmt.Sprintf("✅ Added stop: *%s*\n\nYou now have %d stop(s).", escaped, len(b.route.Stops())))
}

func (b *Bot) cmdRemove(ctx context.Context, chatID int64, args string) error {
	if args == "" {
		return b.reply(ctx, chatID, "Please specify which stop to remove.\nUse `/stops` to see your stops.")
	}

	escaped := notify.EscapeMarkdown(args)
	if err := b.route.RemoveStop(args); err != nil {
		return b.reply(ctx, chatID, fmt.Sprintf("⚠️ Stop *%s* not found!", escaped))
	}

	b.logger.Info().Str("stop", args).Msg("stop removed")
	return b.reply(ctx, chatID, fmt.Sprintf("✅ Removed stop: *%s*", escaped))
}

func (b *Bot) cmdStops(ctx context.Context, chatID int64, _ string) error {
	stops := b.route.Stops()
	if len(stops) == 0 {
		return b.reply(ctx, chatID, "You have no stops configured.")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📍 *Your stops (%d):*\n\n", len(stops))
	for i, stop := range stops {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, notify.EscapeMarkdown(stop))
	}

	return b.reply(ctx, chatID, sb.String())
}

func (b *Bot) cmdClear(ctx context.Context, chatID int64, _ string) error {
	count := b.route.ClearStops()
	b.logger.Info().Int("count", count).Msg("stops cleared")
	return b.reply(ctx, chatID, fmt.Sprintf("✅ Cleared %d stop(s).", count))
}

func (b *Bot) cmdCheck(ctx context.Context, chatID int64, _ string) error {
	if err := b.reply(ctx, chatID, "🔍 Checking traffic now..."); err != nil {
		return err
	}

	report, err := b.checker.ForceCheck(ctx, worker.TriggerTelegram)
	if err != nil {
		b.logger.Warn().Err(err).Msg("forced check failed")
		// A delivery failure still leaves a usable sample.
		if report == nil || report.Sample == nil {
			return b.reply(ctx, chatID, "❌ Traffic check failed. Please try again later.")
		}
	}

	return b.reply(ctx, chatID, CheckSummary(report))
}

func (b *Bot) cmdUnknown(ctx context.Context, chatID int64, _ string) error {
	return b.reply(ctx, chatID, fallbackText)
}

// CheckSummary renders a forced check report for chat.
func CheckSummary(r *worker.Report) string {
	if r == nil || r.Sample == nil || r.Decision == nil {
		return "❌ Traffic check failed. Please try again later."
	}

	var sb strings.Builder
	sb.WriteString("🚦 *Traffic Check*\n\n")
	fmt.Fprintf(&sb, "⏱️ *Travel time:* %s\n", traffic.FormatDuration(r.Sample.DurationInTrafficSeconds))
	fmt.Fprintf(&sb, "📏 *Distance:* %s\n", traffic.FormatDistance(r.Sample.DistanceMeters))
	fmt.Fprintf(&sb, "🚦 *Traffic:* %s\n", r.Decision.Severity.Label())
	fmt.Fprintf(&sb, "🏁 *Recommended departure:* %s\n", r.Decision.Departure.Format("15:04"))
	fmt.Fprintf(&sb, "⏰ *Minutes until departure:* %d\n", int(math.Trunc(r.MinutesUntilDeparture)))

	switch {
	case r.Intent == alert.KindNone:
	case r.Delivered:
		sb.WriteString("\n_Notification sent._")
	default:
		sb.WriteString("\n⚠️ _Notification could not be delivered._")
	}

	return sb.String()
}
