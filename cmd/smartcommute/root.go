package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/smartcommute/smartcommute/internal/alert"
	"github.com/smartcommute/smartcommute/internal/commute"
	"github.com/smartcommute/smartcommute/internal/config"
	"github.com/smartcommute/smartcommute/internal/departure"
	"github.com/smartcommute/smartcommute/internal/notify"
	"github.com/smartcommute/smartcommute/internal/provider/resilience"
	"github.com/smartcommute/smartcommute/internal/routing/googlemaps"
	"github.com/smartcommute/smartcommute/internal/telemetry"
	"github.com/smartcommute/smartcommute/internal/traffic"
	"github.com/smartcommute/smartcommute/internal/window"
	"github.com/smartcommute/smartcommute/internal/worker"
)

const serviceName = "smartcommute"

var envFile string

var rootCmd = &cobra.Command{
	Use:   "smartcommute",
	Short: "Traffic-aware departure alerts for one commute",
	Long: `smartcommute polls live driving times between work and home during
the evening window and sends a Telegram message when it is time to leave.`,
	SilenceUsage: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads and validates the route and Maps settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	if cfg.IsDevelopment() {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).
		Level(cfg.LogLevel).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()
}

// newMonitor wires the Maps client, sampler and decision stages into a
// Monitor delivering through notifier.
func newMonitor(
	cfg *config.Config,
	route *commute.Route,
	notifier notify.Notifier,
	registry *resilience.Registry,
	tp *telemetry.Provider,
	log zerolog.Logger,
	monitorCfg worker.MonitorConfig,
) (*worker.Monitor, error) {
	directions := googlemaps.NewClient(googlemaps.ClientConfig{
		APIKey:   cfg.GoogleMapsAPIKey,
		BaseURL:  cfg.GoogleMapsBaseURL,
		Registry: registry,
		Logger:   log.With().Str("component", googlemaps.ProviderName).Logger(),
	})

	sampler := traffic.NewSampler(traffic.SamplerConfig{
		Provider: directions,
		Logger:   log.With().Str("component", "sampler").Logger(),
	})

	return worker.NewMonitor(worker.MonitorDeps{
		Route:      route,
		Sampler:    sampler,
		Calculator: departure.Calculator{HeavyThreshold: route.HeavyTrafficThreshold()},
		Engine:     alert.Engine{},
		Gate:       window.NewGate(route.CheckTime(), route.DesiredArrival()),
		Notifier:   notifier,
		Config:     monitorCfg,
		Logger:     log.With().Str("component", "monitor").Logger(),
		Meter:      tp.Meter,
		Tracer:     tp.Tracer,
		Now:        cfg.Now,
	})
}
