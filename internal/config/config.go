// Package config loads SmartCommute settings from the environment, with an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/smartcommute/smartcommute/internal/commute"
)

// MaxPollInterval is the longest poll interval that still lands a tick in
// the five-minute daily reset window.
const MaxPollInterval = 5 * time.Minute

// WaypointSeparator separates stops in WAYPOINTS.
const WaypointSeparator = "|"

// Config holds all SmartCommute settings.
type Config struct {
	// Route
	WorkAddress      string
	HomeAddress      string
	Waypoints        []string
	CheckTime        commute.TimeOfDay
	DesiredArrival   commute.TimeOfDay
	BufferMinutes    int
	TrafficThreshold float64
	Location         *time.Location
	PollInterval     time.Duration

	// Providers
	GoogleMapsAPIKey  string
	GoogleMapsBaseURL string
	TelegramBotToken  string
	TelegramChatID    int64

	// Service
	Port     string
	Env      string
	LogLevel zerolog.Level

	// Telemetry
	OTelEnabled  bool
	OTLPEndpoint string

	// Pub/Sub trigger (optional)
	PubSubProjectID    string
	PubSubSubscription string
}

// Load reads envFile, if it exists, into the environment and then parses
// the configuration. Variables already set in the environment win.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv parses the configuration from environment variables. Every
// malformed variable is reported, joined into one error.
func FromEnv() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		WorkAddress:        strings.TrimSpace(os.Getenv("WORK_ADDRESS")),
		HomeAddress:        strings.TrimSpace(os.Getenv("HOME_ADDRESS")),
		Waypoints:          splitWaypoints(os.Getenv("WAYPOINTS")),
		CheckTime:          p.timeOfDay("CHECK_TIME", "17:00"),
		DesiredArrival:     p.timeOfDay("DESIRED_ARRIVAL_TIME", "18:00"),
		BufferMinutes:      p.intVar("BUFFER_MINUTES", 10),
		TrafficThreshold:   p.floatVar("TRAFFIC_THRESHOLD", 1.3),
		Location:           p.locationVar("TIMEZONE"),
		PollInterval:       p.durationVar("POLL_INTERVAL", 5*time.Minute),
		GoogleMapsAPIKey:   os.Getenv("GOOGLE_MAPS_API_KEY"),
		GoogleMapsBaseURL:  getEnvOrDefault("GOOGLE_MAPS_BASE_URL", "https://maps.googleapis.com"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:     p.int64Var("TELEGRAM_CHAT_ID"),
		Port:               getEnvOrDefault("APP_PORT", "8080"),
		Env:                getEnvOrDefault("APP_ENV", "development"),
		LogLevel:           p.levelVar("LOG_LEVEL", zerolog.InfoLevel),
		OTelEnabled:        os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubSubscription: os.Getenv("PUBSUB_SUBSCRIPTION"),
	}

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	return cfg, nil
}

// Validate checks the settings needed to monitor the route.
func (c *Config) Validate() error {
	var errs []error

	if c.WorkAddress == "" {
		errs = append(errs, errors.New("WORK_ADDRESS is required"))
	}
	if c.HomeAddress == "" {
		errs = append(errs, errors.New("HOME_ADDRESS is required"))
	}
	if c.GoogleMapsAPIKey == "" {
		errs = append(errs, errors.New("GOOGLE_MAPS_API_KEY is required"))
	}
	if c.BufferMinutes < 0 {
		errs = append(errs, fmt.Errorf("BUFFER_MINUTES must be >= 0, got %d", c.BufferMinutes))
	}
	if c.TrafficThreshold <= 1.0 {
		errs = append(errs, fmt.Errorf("TRAFFIC_THRESHOLD must be > 1.0, got %g", c.TrafficThreshold))
	}
	if c.PollInterval <= 0 || c.PollInterval > MaxPollInterval {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be in (0, %s], got %s", MaxPollInterval, c.PollInterval))
	}
	if (c.PubSubProjectID == "") != (c.PubSubSubscription == "") {
		errs = append(errs, errors.New("PUBSUB_PROJECT_ID and PUBSUB_SUBSCRIPTION must be set together"))
	}

	return errors.Join(errs...)
}

// ValidateTelegram checks the settings needed to deliver notifications.
func (c *Config) ValidateTelegram() error {
	var errs []error
	if c.TelegramBotToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if c.TelegramChatID == 0 {
		errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required"))
	}
	return errors.Join(errs...)
}

// RouteConfig returns the commute route settings.
func (c *Config) RouteConfig() commute.RouteConfig {
	return commute.RouteConfig{
		WorkAddress:           c.WorkAddress,
		HomeAddress:           c.HomeAddress,
		Waypoints:             c.Waypoints,
		CheckTime:             c.CheckTime,
		DesiredArrival:        c.DesiredArrival,
		BufferMinutes:         c.BufferMinutes,
		HeavyTrafficThreshold: c.TrafficThreshold,
	}
}

// PubSubEnabled reports whether the Pub/Sub trigger is configured.
func (c *Config) PubSubEnabled() bool {
	return c.PubSubProjectID != "" && c.PubSubSubscription != ""
}

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Now returns the current time in the configured time zone.
func (c *Config) Now() time.Time {
	return time.Now().In(c.Location)
}

func splitWaypoints(raw string) []string {
	var out []string
	for _, wp := range strings.Split(raw, WaypointSeparator) {
		if wp = strings.TrimSpace(wp); wp != "" {
			out = append(out, wp)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser collects parse errors so they can be reported together.
type parser struct {
	errs []error
}

func (p *parser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (p *parser) timeOfDay(key, def string) commute.TimeOfDay {
	value := getEnvOrDefault(key, def)
	t, err := commute.ParseTimeOfDay(value)
	if err != nil {
		p.fail(key, value, commute.ErrInvalidTime)
	}
	return t
}

func (p *parser) intVar(key string, def int) int {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value, errors.New("must be an integer"))
	}
	return n
}

func (p *parser) int64Var(key string) int64 {
	value := os.Getenv(key)
	if value == "" {
		return 0
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		p.fail(key, value, errors.New("must be an integer"))
	}
	return n
}

func (p *parser) floatVar(key string, def float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.fail(key, value, errors.New("must be a number"))
	}
	return f
}

func (p *parser) durationVar(key string, def time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.fail(key, value, errors.New("must be a duration such as 5m"))
	}
	return d
}

func (p *parser) locationVar(key string) *time.Location {
	value := os.Getenv(key)
	if value == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(value)
	if err != nil {
		p.fail(key, value, errors.New("unknown time zone"))
		return time.Local
	}
	return loc
}

func (p *parser) levelVar(key string, def zerolog.Level) zerolog.Level {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(value))
	if err != nil {
		p.fail(key, value, errors.New("unknown log level"))
		return def
	}
	return lvl
}
