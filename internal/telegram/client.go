// Package telegram is a minimal Telegram Bot API client: it sends Markdown
// messages to the configured chat and long-polls for incoming commands.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartcommute/smartcommute/internal/notify"
	"github.com/smartcommute/smartcommute/internal/provider/resilience"
)

const (
	// ProviderName identifies this provider in the health registry.
	ProviderName = "telegram"

	// DefaultBaseURL is the Bot API base URL.
	DefaultBaseURL = "https://api.telegram.org"

	// DefaultPollTimeout is the getUpdates long-poll timeout.
	DefaultPollTimeout = 30 * time.Second

	// ParseModeMarkdown is Telegram's legacy Markdown parse mode.
	ParseModeMarkdown = "Markdown"
)

// Sentinel errors for Bot API calls.
var (
	ErrUnauthorized = errors.New("telegram: bot token rejected")
	ErrChatNotFound = errors.New("telegram: chat not found")
	ErrAPI          = errors.New("telegram: api error")
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Bot API client.
type ClientConfig struct {
	// Token is the bot token (required).
	Token string

	// ChatID is the chat notifications are delivered to (required).
	ChatID int64

	// BaseURL overrides the API base URL (optional).
	BaseURL string

	// PollTimeout is the getUpdates long-poll timeout (optional, defaults to 30s).
	PollTimeout time.Duration

	// HTTPClient is the HTTP client to use (optional).
	// If nil, a retrying resilient client is created.
	HTTPClient HTTPDoer

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Telegram Bot API client.
type Client struct {
	token       string
	chatID      int64
	baseURL     string
	pollTimeout time.Duration
	httpClient  HTTPDoer
	logger      zerolog.Logger
}

var _ notify.Notifier = (*Client)(nil)

// NewClient creates a new Bot API client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	pollTimeout := cfg.PollTimeout
	if pollTimeout == 0 {
		pollTimeout = DefaultPollTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		// Long polls hold the connection for up to pollTimeout.
		clientCfg.Timeout = pollTimeout + 10*time.Second
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		token:       cfg.Token,
		chatID:      cfg.ChatID,
		baseURL:     baseURL,
		pollTimeout: pollTimeout,
		httpClient:  httpClient,
		logger:      cfg.Logger,
	}
}

// ChatID returns the configured chat.
func (c *Client) ChatID() int64 {
	return c.chatID
}

// Notify delivers msg to the configured chat.
func (c *Client) Notify(ctx context.Context, msg notify.Message) error {
	if err := c.SendMessage(ctx, c.chatID, msg.Text()); err != nil {
		return err
	}

	c.logger.Info().
		Str("kind", string(msg.Kind)).
		Str("title", msg.Title).
		Msg("notification delivered")

	return nil
}

// SendMessage sends Markdown text to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	req := sendMessageRequest{ChatID: chatID, Text: text, ParseMode: ParseModeMarkdown}

	var sent Message
	if err := c.call(ctx, "sendMessage", req, &sent); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// GetUpdates long-polls for updates with ID >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	req := getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(c.pollTimeout / time.Second),
		AllowedUpdates: []string{"message"},
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", req, &updates); err != nil {
		return nil, fmt.Errorf("getting updates: %w", err)
	}
	return updates, nil
}

func (c *Client) call(ctx context.Context, method string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The URL carries the token, so the transport error is not wrapped.
		return fmt.Errorf("%w: %s request failed", ErrAPI, method)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	envelope := apiResponse[json.RawMessage]{}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("%w: %s returned status %d", ErrAPI, method, resp.StatusCode)
	}

	if !envelope.OK {
		return apiError(method, envelope.ErrorCode, envelope.Description)
	}

	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

func apiError(method string, code int, description string) error {
	switch {
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusBadRequest && strings.Contains(strings.ToLower(description), "chat not found"):
		return ErrChatNotFound
	default:
		return fmt.Errorf("%w: %s: %d %s", ErrAPI, method, code, description)
	}
}
