package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcommute/smartcommute/internal/alert"
	"github.com/smartcommute/smartcommute/internal/commute"
	"github.com/smartcommute/smartcommute/internal/departure"
	"github.com/smartcommute/smartcommute/internal/notify"
	"github.com/smartcommute/smartcommute/internal/traffic"
	"github.com/smartcommute/smartcommute/internal/window"
	"github.com/smartcommute/smartcommute/internal/worker"
)

type fakeSampler struct {
	mu        sync.Mutex
	calls     int
	waypoints []string
	err       error
}

func (f *fakeSampler) Sample(_ context.Context, _, _ string, waypoints []string) (*traffic.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.waypoints = waypoints
	if f.err != nil {
		return nil, &traffic.SampleError{Reason: "directions lookup failed", Err: f.err}
	}
	return &traffic.Sample{
		DurationSeconds:          1800,
		DurationInTrafficSeconds: 2700,
		DistanceMeters:           43500,
		TrafficRatio:             1.5,
		Summary:                  "A2",
	}, nil
}

func (f *fakeSampler) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeNotifier) Sent() []notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Message(nil), f.sent...)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 3, day, hour, minute, 0, 0, time.UTC)
}

type fixture struct {
	monitor  *worker.Monitor
	route    *commute.Route
	sampler  *fakeSampler
	notifier *fakeNotifier
	clock    *clock
}

func newFixture(t *testing.T, start time.Time, cfg worker.MonitorConfig) *fixture {
	t.Helper()

	route, err := commute.NewRoute(commute.RouteConfig{
		WorkAddress:           "Damrak 1, Amsterdam",
		HomeAddress:           "Oudegracht 100, Utrecht",
		CheckTime:             commute.MustParseTimeOfDay("17:00"),
		DesiredArrival:        commute.MustParseTimeOfDay("18:00"),
		BufferMinutes:         10,
		HeavyTrafficThreshold: 1.3,
	})
	require.NoError(t, err)

	f := &fixture{
		route:    route,
		sampler:  &fakeSampler{},
		notifier: &fakeNotifier{},
		clock:    &clock{now: start},
	}

	f.monitor, err = worker.NewMonitor(worker.MonitorDeps{
		Route:      route,
		Sampler:    f.sampler,
		Calculator: departure.Calculator{HeavyThreshold: route.HeavyTrafficThreshold()},
		Gate:       window.NewGate(route.CheckTime(), route.DesiredArrival()),
		Notifier:   f.notifier,
		Config:     cfg,
		Logger:     zerolog.Nop(),
		Now:        f.clock.Now,
	})
	require.NoError(t, err)

	return f
}

func TestNewMonitor_RequiresDependencies(t *testing.T) {
	_, err := worker.NewMonitor(worker.MonitorDeps{Logger: zerolog.Nop()})
	assert.Error(t, err)
}

func TestMonitor_Tick_DepartureAlertOnce(t *testing.T) {
	f := newFixture(t, at(10, 17, 0), worker.DefaultMonitorConfig())

	report, err := f.monitor.Tick(context.Background(), worker.TriggerPoll, false)
	require.NoError(t, err)

	assert.True(t, report.Admitted)
	assert.NotEmpty(t, report.TickID)
	assert.Equal(t, alert.KindDepartureAlert, report.Intent)
	assert.True(t, report.Delivered)
	assert.InDelta(t, 5.0, report.MinutesUntilDeparture, 1e-9)
	require.NotNil(t, report.Decision)
	assert.Equal(t, at(10, 17, 5), report.Decision.Departure)
	assert.True(t, report.State.DepartureNotified)

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.TitleCommuteAlert, sent[0].Title)
	assert.Contains(t, sent[0].Body, "45 min")

	f.clock.Set(at(10, 17, 1))
	report, err = f.monitor.Tick(context.Background(), worker.TriggerPoll, false)
	require.NoError(t, err)
	assert.Equal(t, alert.KindNone, report.Intent)
	assert.Len(t, f.notifier.Sent(), 1)
}

func TestMonitor_Tick_LateWarning(t *testing.T) {
	f := newFixture(t, at(10, 17, 25), worker.DefaultMonitorConfig())

	report, err := f.monitor.Tick(context.Background(), worker.TriggerPoll, false)
	require.NoError(t, err)

	assert.Equal(t, alert.KindLateWarning, report.Intent)
	assert.InDelta(t, -20.0, report.MinutesUntilDeparture, 1e-9)
	require.Len(t, f.notifier.Sent(), 1)
	assert.Equal(t, notify.TitleLateAlert, f.notifier.Sent()[0].Title)
}

func TestMonitor_Tick_QuietTime(t *testing.T) {
	f := newFixture(t, at(10, 16, 40), worker.DefaultMonitorConfig())

	// 16:40 is before the check time, so force the tick.
	report, err := f.monitor.Tick(context.Background(), worker.TriggerCLI, true)
	require.NoError(t, err)

	assert.Equal(t, alert.KindNone, report.Intent)
	assert.InDelta(t, 25.0, report.MinutesUntilDeparture, 1e-9)
	assert.Empty(t, f.notifier.Sent())
}

func TestMonitor_Tick_OutsideWindowSkipsSample(t *testing.T) {
	f := newFixture(t, at(10, 12, 0), worker.DefaultMonitorConfig())

	report, err := f.monitor.Tick(context.Background(), worker.TriggerPoll, false)
	require.NoError(t, err)

	assert.False(t, report.Admitted)
	assert.Nil(t, report.Sample)
	assert.Equal(t, 0, f.sampler.Calls())
}

func TestMonitor_Tick_ForcedBypassesGate(t *testing.T) {
	f := newFixture(t, at(10, 12, 0), worker.DefaultMonitorConfig())

	report, err := f.monitor.Tick(context.Background(), worker.TriggerHTTP, true)
	require.NoError(t, err)

	assert.True(t, report.Admitted)
	assert.True(t, report.Forced)
	assert.Equal(t, 1, f.sampler.Calls())
	assert.Equal(t, "too early", report.Reason)
}

func TestMonitor_Tick_PassesStopsToSampler(t *testing.T) {
	f := newFixture(t, at(10, 17, 30), worker.DefaultMonitorConfig())
	require.NoError(t, f.route.AddStop("Gym"))
	require.NoError(t, f.route.AddStop("Bakery"))

	_, err := f.monitor.Tick(context.Background(), worker.TriggerPoll, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Gym", "Bakery"}, f.sampler.waypoints)
}

func TestMonitor_Tick_DeliveryFailureKeepsState(t *testing.T) {
	f := newFixture(t, at(10, 17, 0), worker.DefaultMonitorConfig())
	f.notifier.err = errors.New("telegram down")

	report, err := f.monitor.Tick(context.Background(), worker.TriggerPoll, false)
	require.Error(t, err)

	assert.Equal(t, alert.KindDepartureAlert, report.Intent)
	assert.False(t, report.Delivered)
	assert.False(t, f.monitor.State().DepartureNotified)
	assert.Equal(t, int64(1), f.monitor.GetMetrics().DeliveryFailures)

	// The next tick re-decides and delivers.
	f.notifier.err = nil
	f.clock.Set(at(10, 17, 2))
	report, err = f.monitor.Tick(context.Background(), worker.TriggerPoll, false)
	require.NoError(t, err)
	assert.True(t, report.Delivered)
	assert.True(t, f.monitor.State().DepartureNotified)
}

func TestMonitor_Tick_SampleFailure(t *testing.T) {
	f := newFixture(t, at(10, 17, 0), worker.DefaultMonitorConfig())
	f.sampler.err = errors.New("ZERO_RESULTS")

	report, err := f.monitor.Tick(context.Background(), worker.TriggerPoll, false)
	require.Error(t, err)

	var sampleErr *traffic.SampleError
	assert.True(t, errors.As(err, &sampleErr))
	assert.NotEmpty(t, report.Error)
	assert.Equal(t, alert.KindNone, report.Intent)
	assert.Empty(t, f.notifier.Sent())
	assert.Equal(t, int64(1), f.monitor.GetMetrics().SampleFailures)
}

func TestMonitor_Tick_DailyReset(t *testing.T) {
	f := newFixture(t, at(10, 17, 0), worker.DefaultMonitorConfig())

	_, err := f.monitor.Tick(context.Background(), worker.TriggerPoll, false)
	require.NoError(t, err)
	require.True(t, f.monitor.State().DepartureNotified)

	f.clock.Set(at(11, 0, 2))
	report, err := f.monitor.Tick(context.Background(), worker.TriggerPoll, false)
	require.NoError(t, err)

	assert.True(t, report.Reset)
	assert.False(t, report.Admitted)
	assert.Equal(t, "2025-03-11", f.monitor.State().Day)
	assert.False(t, f.monitor.State().DepartureNotified)

	f.clock.Set(at(11, 0, 4))
	report, err = f.monitor.Tick(context.Background(), worker.TriggerPoll, false)
	require.NoError(t, err)
	assert.False(t, report.Reset)
}

func TestMonitor_ForceCheckRequiresRun(t *testing.T) {
	f := newFixture(t, at(10, 12, 0), worker.DefaultMonitorConfig())

	_, err := f.monitor.ForceCheck(context.Background(), worker.TriggerHTTP)
	assert.ErrorIs(t, err, worker.ErrMonitorNotRunning)
}

func TestMonitor_RunAndForceCheck(t *testing.T) {
	f := newFixture(t, at(10, 12, 0), worker.MonitorConfig{
		PollInterval:     time.Hour,
		SkipStartupCheck: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.monitor.Run(ctx) }()

	require.Eventually(t, f.monitor.Running, time.Second, 5*time.Millisecond)

	report, err := f.monitor.ForceCheck(context.Background(), worker.TriggerHTTP)
	require.NoError(t, err)
	assert.Equal(t, worker.TriggerHTTP, report.Trigger)
	assert.True(t, report.Admitted)
	assert.Equal(t, report, f.monitor.LastReport())

	_, err = f.monitor.Tick(context.Background(), worker.TriggerCLI, true)
	assert.Error(t, err, "direct ticks are rejected while running")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}

	assert.False(t, f.monitor.Running())
	_, err = f.monitor.ForceCheck(context.Background(), worker.TriggerHTTP)
	assert.ErrorIs(t, err, worker.ErrMonitorNotRunning)
}

func TestMonitor_RunPerformsStartupCheck(t *testing.T) {
	f := newFixture(t, at(10, 12, 0), worker.MonitorConfig{PollInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.monitor.Run(ctx) }()

	require.Eventually(t, func() bool { return f.monitor.LastReport() != nil }, time.Second, 5*time.Millisecond)

	report := f.monitor.LastReport()
	assert.Equal(t, 1, f.sampler.Calls())
	assert.Equal(t, worker.TriggerStartup, report.Trigger)
	assert.True(t, report.Admitted)
}

func TestMonitor_Probe(t *testing.T) {
	f := newFixture(t, at(10, 12, 0), worker.DefaultMonitorConfig())

	sample, err := f.monitor.Probe(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 1.5, sample.TrafficRatio, 1e-9)
	assert.Equal(t, alert.NewState(at(10, 12, 0)), f.monitor.State())
}

func TestMonitor_Metrics(t *testing.T) {
	f := newFixture(t, at(10, 17, 0), worker.DefaultMonitorConfig())

	_, _ = f.monitor.Tick(context.Background(), worker.TriggerPoll, false)
	f.clock.Set(at(10, 12, 0))
	_, _ = f.monitor.Tick(context.Background(), worker.TriggerPoll, false)

	m := f.monitor.GetMetrics()
	assert.Equal(t, int64(2), m.TotalTicks)
	assert.Equal(t, int64(1), m.AdmittedTicks)
	assert.Equal(t, int64(1), m.NotificationsSent)
	assert.InDelta(t, 1.5, m.LastTrafficRatio, 1e-9)

	snapshot := f.monitor.MetricsSnapshot()
	assert.Equal(t, int64(2), snapshot["total_ticks"])
	assert.Equal(t, int64(1), snapshot["notifications_sent"])
}

func TestDefaultMonitorConfig(t *testing.T) {
	cfg := worker.DefaultMonitorConfig()

	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.TickTimeout)
	assert.False(t, cfg.SkipStartupCheck)
}
