// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/countdown-display/internal/countdown"
)

// Topic is the MQTT topic for timer events.
const Topic = "countdown/display/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "countdown/display/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a timer event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event countdown.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "BUTTON" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Countdown CountdownPayload `json:"countdown"`
}

// CountdownPayload contains the timer event details.
type CountdownPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Mode      string `json:"mode"`
	Direction string `json:"direction"`
	Running   bool   `json:"running"`
	AlertMode string `json:"alert_mode"`
	Target    string `json:"target"`
	Display   string `json:"display"`
}

// FormatPayload creates the JSON payload for a timer event.
func FormatPayload(event countdown.Event) ([]byte, error) {
	payload := Payload{
		Countdown: CountdownPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Mode:      string(event.State.Mode),
			Direction: string(event.State.Direction),
			Running:   event.State.Running,
			AlertMode: string(event.State.AlertMode),
			Target:    event.State.Target.UTC().Format(time.RFC3339),
			Display:   event.Display,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
