package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smartcommute/smartcommute/internal/commute"
	"github.com/smartcommute/smartcommute/internal/notify"
	"github.com/smartcommute/smartcommute/internal/provider/resilience"
	"github.com/smartcommute/smartcommute/internal/telegram"
	"github.com/smartcommute/smartcommute/internal/telemetry"
	"github.com/smartcommute/smartcommute/internal/traffic"
	"github.com/smartcommute/smartcommute/internal/worker"
)

var (
	checkNotify bool
	checkGated  bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Sample traffic once and print the departure decision",
	Long: `check samples the route once and prints the traffic and the decision
for a fresh day. The notification is only logged unless --notify is given.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkNotify, "notify", false, "deliver the notification through Telegram")
	checkCmd.Flags().BoolVar(&checkGated, "gated", false, "skip the check outside the monitoring window")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger(cfg, os.Stderr)

	route, err := commute.NewRoute(cfg.RouteConfig())
	if err != nil {
		return err
	}

	var notifier notify.Notifier = notify.LogNotifier{Logger: log}
	if checkNotify {
		if err := cfg.ValidateTelegram(); err != nil {
			return fmt.Errorf("--notify needs Telegram settings:\n%w", err)
		}
		notifier = telegram.NewClient(telegram.ClientConfig{
			Token:  cfg.TelegramBotToken,
			ChatID: cfg.TelegramChatID,
			Logger: log,
		})
	}

	tp, err := telemetry.Init(cmd.Context(), telemetry.Config{ServiceName: serviceName})
	if err != nil {
		return err
	}

	monitor, err := newMonitor(cfg, route, notifier, resilience.NewRegistry(), tp, log, worker.DefaultMonitorConfig())
	if err != nil {
		return err
	}

	report, err := monitor.Tick(cmd.Context(), worker.TriggerCLI, !checkGated)
	if report != nil {
		printReport(cmd.OutOrStdout(), route, report)
	}
	return err
}

func printReport(w io.Writer, route *commute.Route, r *worker.Report) {
	fmt.Fprintf(w, "Route:     %s\n", strings.Join(route.FullRoute(), " → "))
	fmt.Fprintf(w, "Checked:   %s\n", r.CheckedAt.Format("2006-01-02 15:04"))

	if !r.Admitted {
		fmt.Fprintf(w, "Skipped:   %s\n", r.Reason)
		return
	}
	if r.Sample == nil || r.Decision == nil {
		fmt.Fprintf(w, "Failed:    %s\n", r.Reason)
		return
	}

	s, d := r.Sample, r.Decision
	fmt.Fprintf(w, "Via:       %s\n", s.Summary)
	fmt.Fprintf(w, "Distance:  %s\n", traffic.FormatDistance(s.DistanceMeters))
	fmt.Fprintf(w, "Normal:    %s\n", traffic.FormatDuration(s.DurationSeconds))
	fmt.Fprintf(w, "Traffic:   %s (%s, ratio %.2f)\n", traffic.FormatDuration(s.DurationInTrafficSeconds), d.Severity.Label(), s.TrafficRatio)
	for _, stop := range s.Stops {
		fmt.Fprintf(w, "  stop:    %s (%s)\n", stop.Address, traffic.FormatDuration(stop.DurationSeconds))
	}
	fmt.Fprintf(w, "Arrive by: %s\n", d.TargetArrival.Format("15:04"))
	fmt.Fprintf(w, "Leave at:  %s (in %.0f min)\n", d.Departure.Format("15:04"), r.MinutesUntilDeparture)
	fmt.Fprintf(w, "Decision:  %s (%s)\n", r.Intent, r.Reason)
}
