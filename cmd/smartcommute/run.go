package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartcommute/smartcommute/internal/api"
	"github.com/smartcommute/smartcommute/internal/api/middleware"
	"github.com/smartcommute/smartcommute/internal/bot"
	"github.com/smartcommute/smartcommute/internal/commute"
	"github.com/smartcommute/smartcommute/internal/provider/resilience"
	"github.com/smartcommute/smartcommute/internal/telegram"
	"github.com/smartcommute/smartcommute/internal/telemetry"
	"github.com/smartcommute/smartcommute/internal/worker"
)

var skipStartupCheck bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Monitor the commute, answer bot commands and serve the status API",
	Args:  cobra.NoArgs,
	RunE:  runService,
}

func init() {
	runCmd.Flags().BoolVar(&skipStartupCheck, "skip-startup-check", false, "do not run an immediate check at start")
}

func runService(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateTelegram(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	log := newLogger(cfg, os.Stdout)
	log.Info().
		Str("build_time", BuildTime).
		Str("work", cfg.WorkAddress).
		Str("home", cfg.HomeAddress).
		Str("check_time", cfg.CheckTime.String()).
		Str("desired_arrival", cfg.DesiredArrival.String()).
		Str("timezone", cfg.Location.String()).
		Msg("starting SmartCommute")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	route, err := commute.NewRoute(cfg.RouteConfig())
	if err != nil {
		return err
	}

	registry := resilience.NewRegistry()

	tg := telegram.NewClient(telegram.ClientConfig{
		Token:    cfg.TelegramBotToken,
		ChatID:   cfg.TelegramChatID,
		Registry: registry,
		Logger:   log.With().Str("component", telegram.ProviderName).Logger(),
	})

	monitor, err := newMonitor(cfg, route, tg, registry, tp, log, worker.MonitorConfig{
		PollInterval:     cfg.PollInterval,
		SkipStartupCheck: skipStartupCheck,
	})
	if err != nil {
		return err
	}

	chatBot := bot.New(bot.Config{
		API:     tg,
		Route:   route,
		Checker: monitor,
		ChatID:  cfg.TelegramChatID,
		Logger:  log.With().Str("component", "bot").Logger(),
	})

	metrics, err := middleware.NewMetrics(tp.Meter)
	if err != nil {
		return fmt.Errorf("initializing HTTP metrics: %w", err)
	}

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(api.RouterConfig{
			Version:     Version,
			BuildTime:   BuildTime,
			ServiceName: serviceName,
			Logger:      log.With().Str("component", "api").Logger(),
			Metrics:     metrics,
			Route:       route,
			Monitor:     monitor,
			Registry:    registry,
			Now:         cfg.Now,
		}),
		ReadTimeout: 15 * time.Second,
		// Forced checks wait for a directions call and a Telegram send.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var pubsubHandler *worker.PubSubHandler
	if cfg.PubSubEnabled() {
		pubsubHandler, err = worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.PubSubSubscription,
			Checker:          monitor,
			Logger:           log.With().Str("component", "pubsub").Logger(),
		})
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := pubsubHandler.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close pubsub client")
			}
		}()
	}

	errc := make(chan error, 4)
	var wg sync.WaitGroup
	spawn := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errc <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	spawn("monitor", func() error { return monitor.Run(ctx) })
	spawn("bot", func() error { return chatBot.Run(ctx) })
	spawn("http server", func() error {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if pubsubHandler != nil {
		spawn("pubsub", func() error { return pubsubHandler.Start(ctx) })
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case runErr = <-errc:
		log.Error().Err(runErr).Msg("component failed, shutting down")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	wg.Wait()
	log.Info().Msg("SmartCommute stopped")
	return runErr
}
