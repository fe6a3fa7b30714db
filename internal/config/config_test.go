package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcommute/smartcommute/internal/commute"
)

var allKeys = []string{
	"WORK_ADDRESS", "HOME_ADDRESS", "WAYPOINTS", "CHECK_TIME", "DESIRED_ARRIVAL_TIME",
	"BUFFER_MINUTES", "TRAFFIC_THRESHOLD", "TIMEZONE", "POLL_INTERVAL",
	"GOOGLE_MAPS_API_KEY", "GOOGLE_MAPS_BASE_URL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	"APP_PORT", "APP_ENV", "LOG_LEVEL", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
	"PUBSUB_PROJECT_ID", "PUBSUB_SUBSCRIPTION",
}

// clearEnv blanks every variable so the host environment does not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("WORK_ADDRESS", "Damrak 1, Amsterdam")
	t.Setenv("HOME_ADDRESS", "Oudegracht 100, Utrecht")
	t.Setenv("GOOGLE_MAPS_API_KEY", "maps-key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	setRequired(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.ValidateTelegram())

	assert.Equal(t, commute.TimeOfDay{Hour: 17}, cfg.CheckTime)
	assert.Equal(t, commute.TimeOfDay{Hour: 18}, cfg.DesiredArrival)
	assert.Equal(t, 10, cfg.BufferMinutes)
	assert.InDelta(t, 1.3, cfg.TrafficThreshold, 1e-9)
	assert.Equal(t, time.Local, cfg.Location)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	assert.Equal(t, "https://maps.googleapis.com", cfg.GoogleMapsBaseURL)
	assert.Equal(t, int64(42), cfg.TelegramChatID)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.False(t, cfg.OTelEnabled)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.False(t, cfg.PubSubEnabled())
	assert.Empty(t, cfg.Waypoints)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv("WAYPOINTS", "Gym | Bakery||")
	t.Setenv("CHECK_TIME", "16:30")
	t.Setenv("DESIRED_ARRIVAL_TIME", "19:15")
	t.Setenv("BUFFER_MINUTES", "0")
	t.Setenv("TRAFFIC_THRESHOLD", "1.5")
	t.Setenv("TIMEZONE", "Europe/Amsterdam")
	t.Setenv("POLL_INTERVAL", "2m")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("PUBSUB_PROJECT_ID", "commute-prod")
	t.Setenv("PUBSUB_SUBSCRIPTION", "commute-checks")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"Gym", "Bakery"}, cfg.Waypoints)
	assert.Equal(t, "16:30", cfg.CheckTime.String())
	assert.Equal(t, "19:15", cfg.DesiredArrival.String())
	assert.Equal(t, 0, cfg.BufferMinutes)
	assert.Equal(t, "Europe/Amsterdam", cfg.Location.String())
	assert.Equal(t, 2*time.Minute, cfg.PollInterval)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.True(t, cfg.OTelEnabled)
	assert.True(t, cfg.PubSubEnabled())
	assert.Equal(t, cfg.Location, cfg.Now().Location())

	route := cfg.RouteConfig()
	assert.Equal(t, cfg.Waypoints, route.Waypoints)
	assert.InDelta(t, 1.5, route.HeavyTrafficThreshold, 1e-9)
}

func TestFromEnv_ReportsAllParseErrors(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv("CHECK_TIME", "5pm")
	t.Setenv("BUFFER_MINUTES", "ten")
	t.Setenv("TRAFFIC_THRESHOLD", "heavy")
	t.Setenv("POLL_INTERVAL", "often")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("TELEGRAM_CHAT_ID", "me")

	_, err := FromEnv()
	require.Error(t, err)

	for _, key := range []string{"CHECK_TIME", "BUFFER_MINUTES", "TRAFFIC_THRESHOLD", "POLL_INTERVAL", "TIMEZONE", "LOG_LEVEL", "TELEGRAM_CHAT_ID"} {
		assert.Contains(t, err.Error(), key)
	}
	assert.ErrorIs(t, err, commute.ErrInvalidTime)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing work", func(c *Config) { c.WorkAddress = "" }, "WORK_ADDRESS is required"},
		{"missing home", func(c *Config) { c.HomeAddress = "" }, "HOME_ADDRESS is required"},
		{"missing maps key", func(c *Config) { c.GoogleMapsAPIKey = "" }, "GOOGLE_MAPS_API_KEY is required"},
		{"negative buffer", func(c *Config) { c.BufferMinutes = -1 }, "BUFFER_MINUTES"},
		{"threshold too low", func(c *Config) { c.TrafficThreshold = 1.0 }, "TRAFFIC_THRESHOLD"},
		{"poll interval too long", func(c *Config) { c.PollInterval = 10 * time.Minute }, "POLL_INTERVAL"},
		{"poll interval zero", func(c *Config) { c.PollInterval = 0 }, "POLL_INTERVAL"},
		{"pubsub half configured", func(c *Config) { c.PubSubProjectID = "p" }, "PUBSUB_PROJECT_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			setRequired(t)
			cfg, err := FromEnv()
			require.NoError(t, err)

			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := &Config{TrafficThreshold: 1.3, PollInterval: time.Minute}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORK_ADDRESS")
	assert.Contains(t, err.Error(), "HOME_ADDRESS")
	assert.Contains(t, err.Error(), "GOOGLE_MAPS_API_KEY")
}

func TestValidateTelegram(t *testing.T) {
	err := (&Config{}).ValidateTelegram()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
	assert.Contains(t, err.Error(), "TELEGRAM_CHAT_ID")

	assert.NoError(t, (&Config{TelegramBotToken: "t", TelegramChatID: 1}).ValidateTelegram())
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set.
	for _, key := range []string{"WORK_ADDRESS", "HOME_ADDRESS", "GOOGLE_MAPS_API_KEY", "BUFFER_MINUTES"} {
		require.NoError(t, os.Unsetenv(key))
	}
	t.Cleanup(func() {
		for _, key := range []string{"WORK_ADDRESS", "HOME_ADDRESS", "GOOGLE_MAPS_API_KEY", "BUFFER_MINUTES"} {
			_ = os.Unsetenv(key)
		}
	})

	path := filepath.Join(t.TempDir(), ".env")
	content := "WORK_ADDRESS=Damrak 1, Amsterdam\nHOME_ADDRESS=Oudegracht 100, Utrecht\nGOOGLE_MAPS_API_KEY=from-file\nBUFFER_MINUTES=15\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Damrak 1, Amsterdam", cfg.WorkAddress)
	assert.Equal(t, "from-file", cfg.GoogleMapsAPIKey)
	assert.Equal(t, 15, cfg.BufferMinutes)
}

func TestLoad_MissingEnvFileTolerated(t *testing.T) {
	clearEnv(t)
	setRequired(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "maps-key", cfg.GoogleMapsAPIKey)
}
