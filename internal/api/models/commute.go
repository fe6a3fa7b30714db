package models

import (
	"time"

	"github.com/smartcommute/smartcommute/internal/alert"
	"github.com/smartcommute/smartcommute/internal/worker"
)

// RouteSettings echoes the configured route.
type RouteSettings struct {
	WorkAddress           string   `json:"workAddress"`
	HomeAddress           string   `json:"homeAddress"`
	Stops                 []string `json:"stops"`
	CheckTime             string   `json:"checkTime"`
	DesiredArrival        string   `json:"desiredArrival"`
	BufferMinutes         int      `json:"bufferMinutes"`
	HeavyTrafficThreshold float64  `json:"heavyTrafficThreshold"`
}

// MonitoringWindow is today's admission window.
type MonitoringWindow struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Active bool      `json:"active"`
}

// CommuteStatus is the body of GET /v1/commute/status.
type CommuteStatus struct {
	Time       time.Time              `json:"time"`
	Route      RouteSettings          `json:"route"`
	Window     MonitoringWindow       `json:"window"`
	Running    bool                   `json:"running"`
	State      alert.State            `json:"state"`
	LastReport *worker.Report         `json:"lastReport,omitempty"`
	Metrics    map[string]interface{} `json:"metrics"`
}

// StopList is the body of the stop endpoints.
type StopList struct {
	Stops []string `json:"stops"`
}

// StopRequest adds or removes one stop.
type StopRequest struct {
	Address string `json:"address"`
}

// ClearedStops is returned when every stop is removed at once.
type ClearedStops struct {
	Removed int `json:"removed"`
}
