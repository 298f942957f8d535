// Package countdown contains the pure timer logic: target tracking, pause
// folding, alert tiers and display formatting.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package countdown

import "time"

// Mode selects how the target is set.
type Mode string

const (
	// ModeFixedDuration counts towards now+Duration; reset and run/pause apply.
	ModeFixedDuration Mode = "FIXED_DURATION"
	// ModeFixedTarget counts towards an absolute instant and always runs.
	ModeFixedTarget Mode = "FIXED_TARGET"
)

// Direction selects whether the display shows time left or time since.
type Direction string

const (
	CountDown Direction = "DOWN"
	CountUp   Direction = "UP"
)

// AlertMode is the alert tier selected with the alert button.
type AlertMode string

const (
	AlertNormal            AlertMode = "NORMAL"
	AlertMotivational      AlertMode = "MOTIVATIONAL"
	AlertExtraMotivational AlertMode = "EXTRA_MOTIVATIONAL"
)

// Next returns the following tier: NORMAL -> MOTIVATIONAL ->
// EXTRA_MOTIVATIONAL -> NORMAL. Unknown values go back to NORMAL.
func (a AlertMode) Next() AlertMode {
	switch a {
	case AlertNormal:
		return AlertMotivational
	case AlertMotivational:
		return AlertExtraMotivational
	default:
		return AlertNormal
	}
}

// Settings is the initial timer configuration.
type Settings struct {
	Mode      Mode
	Direction Direction
	// Duration is the countdown length for ModeFixedDuration.
	Duration time.Duration
	// Target is the absolute instant for ModeFixedTarget.
	Target time.Time
}

// State is a point-in-time copy of the timer fields.
type State struct {
	Mode      Mode
	Direction Direction
	Running   bool
	Target    time.Time
	AlertMode AlertMode
	Duration  time.Duration
}

// Reading is the result of one Observe call.
type Reading struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
	// Micros is the sub-second part of the magnitude, 0-999999.
	Micros int
	// Total is the signed time left (CountDown) or elapsed (CountUp).
	// Negative means the target has been overrun.
	Total time.Duration
}

// Expired reports whether the signed total is negative.
func (r Reading) Expired() bool {
	return r.Total < 0
}

// EventType names a timer event.
type EventType string

const (
	EventReset     EventType = "RESET"
	EventStarted   EventType = "STARTED"
	EventPaused    EventType = "PAUSED"
	EventAlertMode EventType = "ALERT_MODE"
	EventExpired   EventType = "EXPIRED"
)

// Event is a timer change to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	State     State
	// Display is the text on the display when the event happened.
	Display string
}
