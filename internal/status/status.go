// Package status provides a thread-safe status tracker for the countdown daemon.
// It is read by the HTTP handlers and by MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/countdown-display/internal/countdown"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	IdlePollMs  int64
	HeartbeatMs int64
	Chips       int
	Broker      string
	HTTPPort    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
}

// EventCounts counts published timer events by type.
type EventCounts struct {
	Started   int
	Paused    int
	Reset     int
	AlertMode int
	Expired   int
}

func (c *EventCounts) add(t countdown.EventType) {
	switch t {
	case countdown.EventStarted:
		c.Started++
	case countdown.EventPaused:
		c.Paused++
	case countdown.EventReset:
		c.Reset++
	case countdown.EventAlertMode:
		c.AlertMode++
	case countdown.EventExpired:
		c.Expired++
	}
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Display       string
	Timer         countdown.State
	Remaining     time.Duration // signed; negative once expired
	Expired       bool
	Alerting      bool
	Observed      bool // at least one Update has happened
	Counts        EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the latest timer state, reading and rendered text.
// Called by the controller on every tick.
func (t *Tracker) Update(state countdown.State, r countdown.Reading, display string, alerting bool) {
	t.mu.Lock()
	t.snap.Timer = state
	t.snap.Remaining = r.Total
	t.snap.Expired = r.Expired()
	t.snap.Display = display
	t.snap.Alerting = alerting
	t.snap.Observed = true
	t.mu.Unlock()
}

// RecordEvent counts a timer event.
func (t *Tracker) RecordEvent(typ countdown.EventType) {
	t.mu.Lock()
	t.snap.Counts.add(typ)
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
