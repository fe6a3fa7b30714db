package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcommute/smartcommute/internal/alert"
	"github.com/smartcommute/smartcommute/internal/commute"
	"github.com/smartcommute/smartcommute/internal/departure"
	"github.com/smartcommute/smartcommute/internal/traffic"
	"github.com/smartcommute/smartcommute/internal/worker"
)

func testRoute(t *testing.T) *commute.Route {
	t.Helper()
	route, err := commute.NewRoute(commute.RouteConfig{
		WorkAddress:           "Office",
		HomeAddress:           "Home",
		Waypoints:             []string{"Bakery"},
		CheckTime:             commute.MustParseTimeOfDay("17:00"),
		DesiredArrival:        commute.MustParseTimeOfDay("18:00"),
		BufferMinutes:         10,
		HeavyTrafficThreshold: 1.3,
	})
	require.NoError(t, err)
	return route
}

func TestPrintReport_Decision(t *testing.T) {
	now := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	report := &worker.Report{
		CheckedAt: now,
		Admitted:  true,
		Sample: &traffic.Sample{
			DurationSeconds:          1800,
			DurationInTrafficSeconds: 2700,
			DistanceMeters:           43500,
			TrafficRatio:             1.5,
			Summary:                  "A2",
			Stops:                    []traffic.StopLeg{{Address: "Bakery", DurationSeconds: 840}},
		},
		Decision: &departure.Decision{
			TargetArrival: now.Add(time.Hour),
			Departure:     now.Add(5 * time.Minute),
			TravelMinutes: 45,
			Severity:      departure.SeverityHeavy,
			TrafficRatio:  1.5,
		},
		MinutesUntilDeparture: 5,
		Intent:                alert.KindDepartureAlert,
		Reason:                "departure window",
	}

	var buf bytes.Buffer
	printReport(&buf, testRoute(t), report)
	out := buf.String()

	assert.Contains(t, out, "Route:     Office → Bakery → Home")
	assert.Contains(t, out, "Distance:  43.5 km")
	assert.Contains(t, out, "Traffic:   45 min (🔴 Heavy traffic, ratio 1.50)")
	assert.Contains(t, out, "stop:    Bakery (14 min)")
	assert.Contains(t, out, "Arrive by: 18:00")
	assert.Contains(t, out, "Leave at:  17:05 (in 5 min)")
	assert.Contains(t, out, "Decision:  departure_alert (departure window)")
}

func TestPrintReport_Skipped(t *testing.T) {
	report := &worker.Report{
		CheckedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Reason:    "outside monitoring window",
	}

	var buf bytes.Buffer
	printReport(&buf, testRoute(t), report)

	assert.Contains(t, buf.String(), "Skipped:   outside monitoring window")
	assert.NotContains(t, buf.String(), "Leave at")
}

func TestPrintReport_SampleFailed(t *testing.T) {
	report := &worker.Report{
		CheckedAt: time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC),
		Admitted:  true,
		Reason:    "traffic sample failed",
	}

	var buf bytes.Buffer
	printReport(&buf, testRoute(t), report)

	assert.Contains(t, buf.String(), "Failed:    traffic sample failed")
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)

	assert.Equal(t, "smartcommute dev (built unknown)\n", buf.String())
}
