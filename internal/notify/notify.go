// Package notify renders commute notifications and defines the transport
// they are delivered through.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartcommute/smartcommute/internal/alert"
	"github.com/smartcommute/smartcommute/internal/departure"
	"github.com/smartcommute/smartcommute/internal/traffic"
)

// Notifier delivers a message to the user. A nil error means the
// transport confirmed delivery.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Message is a titled Markdown notification.
type Message struct {
	Kind  alert.Kind
	Title string
	Body  string
}

// Text returns the full message as sent: bold title, blank line, body.
func (m Message) Text() string {
	return "*" + m.Title + "*\n\n" + m.Body
}

// Notification titles.
const (
	TitleCommuteAlert = "Commute Alert"
	TitleTrafficAlert = "Traffic Warning"
	TitleLateAlert    = "Late Alert"
)

var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// EscapeMarkdown escapes user-supplied text for Telegram's Markdown mode.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// DepartureAlert tells the user it is time to leave.
func DepartureAlert(travelTime, routeSummary, trafficStatus string, stops []string) Message {
	var b strings.Builder
	b.WriteString("🏠 *Time to Head Home!*\n\n")
	fmt.Fprintf(&b, "⏱️ *Travel time:* %s\n", travelTime)
	fmt.Fprintf(&b, "🚦 *Traffic:* %s\n", trafficStatus)
	fmt.Fprintf(&b, "🗺️ *Best route:* %s\n", EscapeMarkdown(routeSummary))

	if len(stops) > 0 {
		b.WriteString("\n📍 *Your stops:*\n")
		for i, stop := range stops {
			fmt.Fprintf(&b, "   %d. %s\n", i+1, EscapeMarkdown(stop))
		}
	}

	b.WriteString("\n_Have a safe trip home!_ 🚗")

	return Message{Kind: alert.KindDepartureAlert, Title: TitleCommuteAlert, Body: b.String()}
}

// EarlyWarning suggests leaving early because of heavy traffic.
func EarlyWarning(travelTime string, minutesEarly int, trafficStatus string) Message {
	var b strings.Builder
	b.WriteString("⚠️ *Heavy Traffic Detected*\n\n")
	fmt.Fprintf(&b, "Consider leaving *%d minutes early*\n\n", minutesEarly)
	fmt.Fprintf(&b, "⏱️ *Current travel time:* %s\n", travelTime)
	fmt.Fprintf(&b, "🚦 %s\n\n", trafficStatus)
	b.WriteString("_I'll notify you again when it's time to leave._")

	return Message{Kind: alert.KindEarlyWarning, Title: TitleTrafficAlert, Body: b.String()}
}

// LateWarning tells the user the departure time has passed.
func LateWarning(travelTime string) Message {
	var b strings.Builder
	b.WriteString("⚠️ *You're Running Late!*\n\n")
	fmt.Fprintf(&b, "⏱️ *Travel time:* %s\n\n", travelTime)
	b.WriteString("_Leave now to minimize delay!_")

	return Message{Kind: alert.KindLateWarning, Title: TitleLateAlert, Body: b.String()}
}

// ForIntent renders the message for an engine intent. It returns false for
// KindNone.
func ForIntent(intent alert.Intent, sample *traffic.Sample, d departure.Decision) (Message, bool) {
	travelTime := traffic.FormatDuration(sample.DurationInTrafficSeconds)

	switch intent.Kind {
	case alert.KindDepartureAlert:
		stops := make([]string, 0, len(sample.Stops))
		for _, s := range sample.Stops {
			stops = append(stops, s.Address)
		}
		return DepartureAlert(travelTime, sample.Summary, d.Severity.Label(), stops), true
	case alert.KindEarlyWarning:
		return EarlyWarning(travelTime, intent.MinutesEarly, d.Severity.Label()), true
	case alert.KindLateWarning:
		return LateWarning(travelTime), true
	default:
		return Message{}, false
	}
}
