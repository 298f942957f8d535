package controller

import (
	"fmt"

	"github.com/sweeney/countdown-display/internal/gpio"
)

// Event is an input to the dispatcher.
type Event int

const (
	EventBuzzerOn Event = iota
	EventBuzzerOff
	EventCycleAlert
	EventReset
	EventToggleRunning
	EventShutdown
)

func (e Event) String() string {
	switch e {
	case EventBuzzerOn:
		return "BUZZER_ON"
	case EventBuzzerOff:
		return "BUZZER_OFF"
	case EventCycleAlert:
		return "CYCLE_ALERT"
	case EventReset:
		return "RESET"
	case EventToggleRunning:
		return "TOGGLE_RUNNING"
	case EventShutdown:
		return "SHUTDOWN"
	default:
		return fmt.Sprintf("EVENT(%d)", int(e))
	}
}

// FromButton maps a button edge to an event. Only the buzzer button
// reacts to release; the other buttons act on press.
func FromButton(b gpio.Button, pressed bool) (Event, bool) {
	if b == gpio.ButtonBuzzer {
		if pressed {
			return EventBuzzerOn, true
		}
		return EventBuzzerOff, true
	}
	if !pressed {
		return 0, false
	}
	switch b {
	case gpio.ButtonAlert:
		return EventCycleAlert, true
	case gpio.ButtonReset:
		return EventReset, true
	case gpio.ButtonRun:
		return EventToggleRunning, true
	case gpio.ButtonShutdown:
		return EventShutdown, true
	}
	return 0, false
}
