// Package worker runs the commute monitor: the polling loop that samples
// traffic, decides on notifications and delivers them.
package worker

import (
	"time"
)

// Defaults for the monitor loop.
const (
	DefaultPollInterval = 5 * time.Minute
	DefaultTickTimeout  = 30 * time.Second
)

// Tick triggers, recorded on every report.
const (
	TriggerStartup  = "startup"
	TriggerPoll     = "poll"
	TriggerDaily    = "daily"
	TriggerTelegram = "telegram"
	TriggerHTTP     = "http"
	TriggerPubSub   = "pubsub"
	TriggerCLI      = "cli"
)

// MonitorConfig holds the loop timing for a Monitor.
type MonitorConfig struct {
	// PollInterval is the time between gated ticks.
	// Default: 5 minutes
	PollInterval time.Duration

	// TickTimeout bounds the directions call and delivery of one tick.
	// Default: 30 seconds
	TickTimeout time.Duration

	// SkipStartupCheck disables the ungated check when Run starts.
	SkipStartupCheck bool
}

// DefaultMonitorConfig returns the default monitor configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		PollInterval: DefaultPollInterval,
		TickTimeout:  DefaultTickTimeout,
	}
}

func (c MonitorConfig) withDefaults() MonitorConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.TickTimeout <= 0 {
		c.TickTimeout = DefaultTickTimeout
	}
	return c
}
