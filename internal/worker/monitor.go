package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/smartcommute/smartcommute/internal/alert"
	"github.com/smartcommute/smartcommute/internal/commute"
	"github.com/smartcommute/smartcommute/internal/departure"
	"github.com/smartcommute/smartcommute/internal/notify"
	"github.com/smartcommute/smartcommute/internal/traffic"
	"github.com/smartcommute/smartcommute/internal/window"
)

const instrumentationName = "github.com/smartcommute/smartcommute/internal/worker"

// ErrMonitorNotRunning is returned by ForceCheck when Run is not active.
var ErrMonitorNotRunning = errors.New("commute monitor is not running")

// Sampler fetches a traffic sample for the route.
type Sampler interface {
	Sample(ctx context.Context, origin, destination string, waypoints []string) (*traffic.Sample, error)
}

// Report describes what one tick observed and did.
type Report struct {
	TickID                string              `json:"tick_id"`
	Trigger               string              `json:"trigger"`
	Forced                bool                `json:"forced"`
	CheckedAt             time.Time           `json:"checked_at"`
	Reset                 bool                `json:"reset"`
	Admitted              bool                `json:"admitted"`
	Sample                *traffic.Sample     `json:"sample,omitempty"`
	Decision              *departure.Decision `json:"decision,omitempty"`
	MinutesUntilDeparture float64             `json:"minutes_until_departure"`
	Intent                alert.Kind          `json:"intent"`
	Reason                string              `json:"reason"`
	Delivered             bool                `json:"delivered"`
	State                 alert.State         `json:"state"`
	Error                 string              `json:"error,omitempty"`
}

// MonitorDeps holds the collaborators of a Monitor.
type MonitorDeps struct {
	Route      *commute.Route
	Sampler    Sampler
	Calculator departure.Calculator
	Engine     alert.Engine
	Gate       window.Gate
	Notifier   notify.Notifier
	Config     MonitorConfig
	Logger     zerolog.Logger

	// Meter and Tracer default to the global providers.
	Meter  metric.Meter
	Tracer trace.Tracer

	// Now overrides the clock (optional).
	Now func() time.Time
}

type checkRequest struct {
	trigger string
	reply   chan checkResult
}

type checkResult struct {
	report *Report
	err    error
}

// Monitor owns the day's notification state and runs the polling loop.
// State is only advanced from the goroutine running Run, or from direct
// Tick calls when Run is not active.
type Monitor struct {
	route      *commute.Route
	sampler    Sampler
	calculator departure.Calculator
	engine     alert.Engine
	gate       window.Gate
	notifier   notify.Notifier
	config     MonitorConfig
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time

	checks  chan checkRequest
	running atomic.Bool
	stopped chan struct{}

	mu         sync.RWMutex
	state      alert.State
	lastReport *Report

	metrics     *MonitorMetrics
	instruments *instruments
}

// NewMonitor creates a Monitor with an empty state for today.
func NewMonitor(deps MonitorDeps) (*Monitor, error) {
	if deps.Route == nil || deps.Sampler == nil || deps.Notifier == nil {
		return nil, errors.New("worker: route, sampler and notifier are required")
	}

	meter := deps.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	inst, err := newInstruments(meter)
	if err != nil {
		return nil, fmt.Errorf("creating monitor instruments: %w", err)
	}

	return &Monitor{
		route:       deps.Route,
		sampler:     deps.Sampler,
		calculator:  deps.Calculator,
		engine:      deps.Engine,
		gate:        deps.Gate,
		notifier:    deps.Notifier,
		config:      deps.Config.withDefaults(),
		logger:      deps.Logger,
		tracer:      tracer,
		now:         now,
		checks:      make(chan checkRequest),
		stopped:     make(chan struct{}),
		state:       alert.NewState(now()),
		metrics:     &MonitorMetrics{},
		instruments: inst,
	}, nil
}

// Run drives the monitor until ctx is cancelled. It runs an ungated check
// at start, a gated tick every poll interval, a tick at the daily check
// time, and any forced checks queued through ForceCheck.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return errors.New("worker: monitor already running")
	}
	defer close(m.stopped)

	m.logger.Info().
		Str("work", m.route.WorkAddress()).
		Str("home", m.route.HomeAddress()).
		Str("check_time", m.route.CheckTime().String()).
		Str("desired_arrival", m.route.DesiredArrival().String()).
		Dur("poll_interval", m.config.PollInterval).
		Msg("commute monitor started")

	if !m.config.SkipStartupCheck {
		_, _ = m.tick(ctx, TriggerStartup, true)
	}

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	daily := time.NewTimer(m.untilNextCheck(m.now()))
	defer daily.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("commute monitor stopped")
			return nil

		case <-ticker.C:
			_, _ = m.tick(ctx, TriggerPoll, false)

		case <-daily.C:
			_, _ = m.tick(ctx, TriggerDaily, false)
			daily.Reset(m.untilNextCheck(m.now()))

		case req := <-m.checks:
			report, err := m.tick(ctx, req.trigger, true)
			req.reply <- checkResult{report: report, err: err}
		}
	}
}

// ForceCheck queues an ungated check on the Run goroutine and waits for
// its report.
func (m *Monitor) ForceCheck(ctx context.Context, trigger string) (*Report, error) {
	if !m.Running() {
		return nil, ErrMonitorNotRunning
	}

	reply := make(chan checkResult, 1)

	select {
	case m.checks <- checkRequest{trigger: trigger, reply: reply}:
	case <-m.stopped:
		return nil, ErrMonitorNotRunning
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.report, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Tick runs one pipeline pass: reset, gate, sample, recommend, decide,
// deliver, commit. Forced ticks skip the gate. Tick must not be called
// while Run is active.
func (m *Monitor) Tick(ctx context.Context, trigger string, forced bool) (*Report, error) {
	if m.Running() {
		return nil, errors.New("worker: Tick called while monitor is running")
	}
	return m.tick(ctx, trigger, forced)
}

func (m *Monitor) tick(ctx context.Context, trigger string, forced bool) (*Report, error) {
	start := time.Now()
	now := m.now()

	report := &Report{
		TickID:    uuid.New().String(),
		Trigger:   trigger,
		Forced:    forced,
		CheckedAt: now,
		Intent:    alert.KindNone,
	}

	logger := m.logger.With().
		Str("tick_id", report.TickID).
		Str("trigger", trigger).
		Logger()

	ctx, span := m.tracer.Start(ctx, "commute.monitor.tick", trace.WithAttributes(
		attribute.String("tick.id", report.TickID),
		attribute.String("tick.trigger", trigger),
		attribute.Bool("tick.forced", forced),
	))
	defer span.End()

	err := m.runPipeline(ctx, now, report, logger)

	report.State = m.State()
	if err != nil {
		report.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.Bool("tick.admitted", report.Admitted),
		attribute.String("tick.intent", string(report.Intent)),
	)

	duration := time.Since(start)
	m.metrics.recordTick(report, duration)
	m.instruments.recordTick(ctx, report, duration)

	m.mu.Lock()
	m.lastReport = report
	m.mu.Unlock()

	return report, err
}

func (m *Monitor) runPipeline(ctx context.Context, now time.Time, report *Report, logger zerolog.Logger) error {
	state := m.State()

	if next, reset := m.gate.MaybeReset(now, state); reset {
		m.setState(next)
		state = next
		report.Reset = true
		logger.Info().Str("day", next.Day).Msg("daily notification state reset")
	}

	report.Admitted = report.Forced || m.gate.Admit(now)
	if !report.Admitted {
		report.Reason = "outside monitoring window"
		logger.Debug().Msg("tick outside monitoring window")
		return nil
	}

	tickCtx, cancel := context.WithTimeout(ctx, m.config.TickTimeout)
	defer cancel()

	sample, err := m.sampler.Sample(tickCtx, m.route.WorkAddress(), m.route.HomeAddress(), m.route.Stops())
	if err != nil {
		m.metrics.recordSampleFailure()
		m.instruments.recordFailure(ctx, "sample")
		report.Reason = "traffic sample failed"
		logger.Error().Err(err).Msg("traffic sample failed")
		return err
	}
	report.Sample = sample

	decision := m.calculator.Recommend(sample, m.route.DesiredArrival(), m.route.BufferMinutes(), now)
	report.Decision = &decision
	report.MinutesUntilDeparture = decision.MinutesUntilDeparture(now)

	outcome := m.engine.Decide(now, decision, state)
	report.Intent = outcome.Intent.Kind
	report.Reason = outcome.Reason

	logger.Info().
		Str("travel_time", traffic.FormatDuration(sample.DurationInTrafficSeconds)).
		Str("severity", string(decision.Severity)).
		Float64("traffic_ratio", sample.TrafficRatio).
		Time("departure", decision.Departure).
		Float64("minutes_until_departure", report.MinutesUntilDeparture).
		Str("intent", string(outcome.Intent.Kind)).
		Str("reason", outcome.Reason).
		Msg("commute checked")

	msg, ok := notify.ForIntent(outcome.Intent, sample, decision)
	if !ok {
		return nil
	}

	if err := m.notifier.Notify(tickCtx, msg); err != nil {
		m.metrics.recordDelivery(false)
		m.instruments.recordFailure(ctx, "deliver")
		logger.Error().
			Err(err).
			Str("intent", string(outcome.Intent.Kind)).
			Msg("notification delivery failed; state not advanced")
		return fmt.Errorf("delivering %s: %w", outcome.Intent.Kind, err)
	}

	m.setState(outcome.Next)
	report.Delivered = true
	m.metrics.recordDelivery(true)
	m.instruments.recordNotification(ctx, string(outcome.Intent.Kind))

	return nil
}

// untilNextCheck returns the wait until the next check time after now.
func (m *Monitor) untilNextCheck(now time.Time) time.Duration {
	next := m.route.CheckTime().On(now)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// State returns a copy of the day's notification state.
func (m *Monitor) State() alert.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Monitor) setState(s alert.State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// LastReport returns the most recent tick report, or nil before the first tick.
func (m *Monitor) LastReport() *Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastReport
}

// Running reports whether Run is active.
func (m *Monitor) Running() bool {
	return m.running.Load() && !isClosed(m.stopped)
}

// GetMetrics returns a copy of the current metrics.
func (m *Monitor) GetMetrics() MonitorMetrics {
	return m.metrics.snapshot()
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (m *Monitor) MetricsSnapshot() map[string]interface{} {
	s := m.GetMetrics()
	return map[string]interface{}{
		"total_ticks":        s.TotalTicks,
		"admitted_ticks":     s.AdmittedTicks,
		"forced_checks":      s.ForcedChecks,
		"sample_failures":    s.SampleFailures,
		"notifications_sent": s.NotificationsSent,
		"delivery_failures":  s.DeliveryFailures,
		"daily_resets":       s.DailyResets,
		"last_tick_at":       s.LastTickAt,
		"last_tick_duration": s.LastTickDuration.String(),
		"last_traffic_ratio": s.LastTrafficRatio,
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Probe samples the route without deciding or notifying. It does not touch
// the notification state and is safe to call concurrently with Run.
func (m *Monitor) Probe(ctx context.Context) (*traffic.Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, m.config.TickTimeout)
	defer cancel()
	return m.sampler.Sample(ctx, m.route.WorkAddress(), m.route.HomeAddress(), m.route.Stops())
}
