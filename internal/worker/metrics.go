package worker

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MonitorMetrics tracks monitor statistics.
type MonitorMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalTicks        int64
	AdmittedTicks     int64
	ForcedChecks      int64
	SampleFailures    int64
	NotificationsSent int64
	DeliveryFailures  int64
	DailyResets       int64

	// Timings
	LastTickAt       time.Time
	LastTickDuration time.Duration
	LastTrafficRatio float64
}

func (m *MonitorMetrics) recordTick(r *Report, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalTicks++
	if r.Admitted {
		m.AdmittedTicks++
	}
	if r.Forced {
		m.ForcedChecks++
	}
	if r.Reset {
		m.DailyResets++
	}
	if r.Sample != nil {
		m.LastTrafficRatio = r.Sample.TrafficRatio
	}
	m.LastTickAt = r.CheckedAt
	m.LastTickDuration = duration
}

func (m *MonitorMetrics) recordSampleFailure() {
	m.mu.Lock()
	m.SampleFailures++
	m.mu.Unlock()
}

func (m *MonitorMetrics) recordDelivery(ok bool) {
	m.mu.Lock()
	if ok {
		m.NotificationsSent++
	} else {
		m.DeliveryFailures++
	}
	m.mu.Unlock()
}

// snapshot returns a copy without the lock.
func (m *MonitorMetrics) snapshot() MonitorMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MonitorMetrics{
		TotalTicks:        m.TotalTicks,
		AdmittedTicks:     m.AdmittedTicks,
		ForcedChecks:      m.ForcedChecks,
		SampleFailures:    m.SampleFailures,
		NotificationsSent: m.NotificationsSent,
		DeliveryFailures:  m.DeliveryFailures,
		DailyResets:       m.DailyResets,
		LastTickAt:        m.LastTickAt,
		LastTickDuration:  m.LastTickDuration,
		LastTrafficRatio:  m.LastTrafficRatio,
	}
}

// instruments are the OpenTelemetry counterparts of MonitorMetrics.
type instruments struct {
	ticks         metric.Int64Counter
	notifications metric.Int64Counter
	failures      metric.Int64Counter
	trafficRatio  metric.Float64Histogram
	tickDuration  metric.Float64Histogram
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	ticks, err := meter.Int64Counter(
		"commute.monitor.ticks",
		metric.WithDescription("Monitor ticks by trigger and admission"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return nil, err
	}

	notifications, err := meter.Int64Counter(
		"commute.notifications",
		metric.WithDescription("Delivered notifications by kind"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"commute.monitor.failures",
		metric.WithDescription("Tick failures by stage"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	trafficRatio, err := meter.Float64Histogram(
		"commute.traffic.ratio",
		metric.WithDescription("Traffic-aware over free-flow duration"),
		metric.WithExplicitBucketBoundaries(1.0, 1.1, 1.2, 1.3, 1.5, 2.0, 3.0),
	)
	if err != nil {
		return nil, err
	}

	tickDuration, err := meter.Float64Histogram(
		"commute.monitor.tick.duration",
		metric.WithDescription("Duration of a monitor tick"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &instruments{
		ticks:         ticks,
		notifications: notifications,
		failures:      failures,
		trafficRatio:  trafficRatio,
		tickDuration:  tickDuration,
	}, nil
}

func (i *instruments) recordTick(ctx context.Context, r *Report, duration time.Duration) {
	i.ticks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trigger", r.Trigger),
		attribute.Bool("admitted", r.Admitted),
	))
	i.tickDuration.Record(ctx, duration.Seconds())
	if r.Sample != nil {
		i.trafficRatio.Record(ctx, r.Sample.TrafficRatio)
	}
}

func (i *instruments) recordNotification(ctx context.Context, kind string) {
	i.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (i *instruments) recordFailure(ctx context.Context, stage string) {
	i.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
