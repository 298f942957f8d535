package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Ready         bool         `json:"ready"`
	Timer         TimerJSON    `json:"timer"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// TimerJSON is the JSON representation of the timer state.
type TimerJSON struct {
	Display          string `json:"display"`
	Mode             string `json:"mode"`
	Direction        string `json:"direction"`
	Running          bool   `json:"running"`
	AlertMode        string `json:"alert_mode"`
	Expired          bool   `json:"expired"`
	Alerting         bool   `json:"alerting"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	Target           string `json:"target,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Started   int `json:"started"`
	Paused    int `json:"paused"`
	Reset     int `json:"reset"`
	AlertMode int `json:"alert_mode"`
	Expired   int `json:"expired"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	IdlePollMs  int64  `json:"idle_poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Chips       int    `json:"chips"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	WSBroker    string `json:"ws_broker,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	timer := TimerJSON{
		Display:          snap.Display,
		Mode:             string(snap.Timer.Mode),
		Direction:        string(snap.Timer.Direction),
		Running:          snap.Timer.Running,
		AlertMode:        string(snap.Timer.AlertMode),
		Expired:          snap.Expired,
		Alerting:         snap.Alerting,
		RemainingSeconds: int64(snap.Remaining.Truncate(time.Second).Seconds()),
	}
	if !snap.Timer.Target.IsZero() {
		timer.Target = snap.Timer.Target.UTC().Format(time.RFC3339)
	}
	if timer.Mode == "" {
		timer.Mode = "UNKNOWN"
	}

	return StatusInner{
		Ready:         snap.Observed,
		Timer:         timer,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Started:   snap.Counts.Started,
			Paused:    snap.Counts.Paused,
			Reset:     snap.Counts.Reset,
			AlertMode: snap.Counts.AlertMode,
			Expired:   snap.Counts.Expired,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			IdlePollMs:  snap.Config.IdlePollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Chips:       snap.Config.Chips,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			WSBroker:    snap.Config.WSBroker,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
