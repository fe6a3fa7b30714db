package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcommute/smartcommute/internal/notify"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		Token:       "123:abc",
		ChatID:      42,
		BaseURL:     server.URL,
		PollTimeout: time.Second,
		HTTPClient:  server.Client(),
		Logger:      zerolog.Nop(),
	})
}

func TestClient_Notify(t *testing.T) {
	var got sendMessageRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"chat":{"id":42},"date":1700000000,"text":"x"}}`))
	})

	err := client.Notify(context.Background(), notify.LateWarning("45 min"))
	require.NoError(t, err)

	assert.Equal(t, int64(42), got.ChatID)
	assert.Equal(t, ParseModeMarkdown, got.ParseMode)
	assert.Equal(t, "*Late Alert*\n\n⚠️ *You're Running Late!*\n\n⏱️ *Travel time:* 45 min\n\n_Leave now to minimize delay!_", got.Text)
}

func TestClient_SendMessage_APIErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"ok":false,"error_code":401,"description":"Unauthorized"}`, ErrUnauthorized},
		{"chat not found", http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`, ErrChatNotFound},
		{"bad markdown", http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`, ErrAPI},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, ErrAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := client.SendMessage(context.Background(), 42, "hi")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NotContains(t, err.Error(), "123:abc")
		})
	}
}

func TestClient_SendMessage_TransportErrorHidesToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := NewClient(ClientConfig{
		Token:      "123:abc",
		ChatID:     42,
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})

	err := client.SendMessage(context.Background(), 42, "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAPI)
	assert.NotContains(t, err.Error(), "123:abc")
}

func TestClient_GetUpdates(t *testing.T) {
	var got getUpdatesRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/getUpdates", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":100,"message":{"message_id":1,"from":{"id":42,"username":"commuter"},"chat":{"id":42,"type":"private"},"date":1700000000,"text":"/stops"}},
			{"update_id":101}
		]}`))
	})

	updates, err := client.GetUpdates(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, int64(100), got.Offset)
	assert.Equal(t, 1, got.Timeout)
	assert.Equal(t, []string{"message"}, got.AllowedUpdates)

	require.Len(t, updates, 2)
	assert.Equal(t, int64(100), updates[0].UpdateID)
	require.NotNil(t, updates[0].Message)
	assert.Equal(t, "/stops", updates[0].Message.Text)
	assert.Equal(t, int64(42), updates[0].Message.Chat.ID)
	assert.Nil(t, updates[1].Message)
}

func TestClient_GetUpdates_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetUpdates(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(ClientConfig{Token: "t", ChatID: 1, Logger: zerolog.Nop()})

	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, DefaultPollTimeout, client.pollTimeout)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, int64(1), client.ChatID())
}
