// Package bot implements the Telegram command surface: managing stops,
// showing the configuration and triggering traffic checks.
package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartcommute/smartcommute/internal/commute"
	"github.com/smartcommute/smartcommute/internal/telegram"
	"github.com/smartcommute/smartcommute/internal/worker"
)

// DefaultRetryDelay is the wait after a failed getUpdates call.
const DefaultRetryDelay = 5 * time.Second

// API is the subset of the Bot API the command surface uses.
type API interface {
	GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Checker runs a forced traffic check.
type Checker interface {
	ForceCheck(ctx context.Context, trigger string) (*worker.Report, error)
}

// Config holds configuration for the Bot.
type Config struct {
	API     API
	Route   *commute.Route
	Checker Checker

	// ChatID is the only chat the bot answers.
	ChatID int64

	// RetryDelay is the wait after a failed poll (optional, defaults to 5s).
	RetryDelay time.Duration

	Logger zerolog.Logger
}

type handlerFunc func(ctx context.Context, chatID int64, args string) error

// Bot dispatches incoming messages to command handlers.
type Bot struct {
	api        API
	route      *commute.Route
	checker    Checker
	chatID     int64
	retryDelay time.Duration
	logger     zerolog.Logger
	commands   map[string]handlerFunc
}

// New creates a Bot.
func New(cfg Config) *Bot {
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = DefaultRetryDelay
	}

	b := &Bot{
		api:        cfg.API,
		route:      cfg.Route,
		checker:    cfg.Checker,
		chatID:     cfg.ChatID,
		retryDelay: retryDelay,
		logger:     cfg.Logger,
	}

	b.commands = map[string]handlerFunc{
		"start":  b.cmdStart,
		"help":   b.cmdStart,
		"status": b.cmdStatus,
		"add":    b.cmdAdd,
		"remove": b.cmdRemove,
		"stops":  b.cmdStops,
		"clear":  b.cmdClear,
		"check":  b.cmdCheck,
	}

	return b
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info().Int64("chat_id", b.chatID).Msg("telegram bot started")

	var offset int64
	for {
		updates, err := b.api.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info().Msg("telegram bot stopped")
				return nil
			}
			b.logger.Warn().Err(err).Dur("retry_in", b.retryDelay).Msg("polling updates failed")

			select {
			case <-ctx.Done():
				b.logger.Info().Msg("telegram bot stopped")
				return nil
			case <-time.After(b.retryDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			b.HandleUpdate(ctx, u)
		}
	}
}

// HandleUpdate answers one update. Messages from other chats are ignored.
func (b *Bot) HandleUpdate(ctx context.Context, u telegram.Update) {
	msg := u.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}

	logger := b.logger.With().
		Int64("update_id", u.UpdateID).
		Int64("chat_id", msg.Chat.ID).
		Logger()

	if msg.Chat.ID != b.chatID {
		logger.Warn().Msg("ignoring message from unauthorized chat")
		return
	}

	var err error
	if name, args, ok := parseCommand(msg.Text); ok {
		handler, found := b.commands[name]
		if !found {
			handler = b.cmdUnknown
		}
		logger.Debug().Str("command", name).Msg("handling command")
		err = handler(ctx, msg.Chat.ID, args)
	} else {
		err = b.handleText(ctx, msg.Chat.ID, msg.Text)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("failed to answer message")
	}
}

// parseCommand splits "/add@my_bot Whole Foods" into ("add", "Whole Foods").
func parseCommand(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	head, rest, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")

	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) error {
	return b.api.SendMessage(ctx, chatID, text)
}
