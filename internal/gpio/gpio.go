// Package gpio provides digital output lines and button edge events with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "fmt"

// Output is a single binary output line.
type Output interface {
	// Set drives the line to the logical level on (true = high).
	Set(on bool) error

	// Value returns the level last written with Set.
	Value() bool
}

// Button identifies one of the front-panel push buttons.
type Button int

const (
	ButtonBuzzer Button = iota
	ButtonAlert
	ButtonReset
	ButtonRun
	ButtonShutdown
)

// Buttons lists every button in a stable order.
var Buttons = []Button{ButtonBuzzer, ButtonAlert, ButtonReset, ButtonRun, ButtonShutdown}

func (b Button) String() string {
	switch b {
	case ButtonBuzzer:
		return "BUZZER"
	case ButtonAlert:
		return "ALERT"
	case ButtonReset:
		return "RESET"
	case ButtonRun:
		return "RUN"
	case ButtonShutdown:
		return "SHUTDOWN"
	}
	return fmt.Sprintf("BUTTON(%d)", int(b))
}

// Handler receives button edges. pressed is true on press, false on release.
// It is called from the edge watcher's goroutine.
type Handler func(b Button, pressed bool)

// ButtonSource delivers button edges until closed.
type ButtonSource interface {
	Close() error
}

// Default pin assignments (BCM numbering).
const (
	DefaultPinCLK = 14
	DefaultPinSDI = 15
	DefaultPinLE  = 18
	DefaultPinOE  = 23

	DefaultPinBuzzer = 24

	DefaultPinButtonBuzzer   = 2
	DefaultPinButtonAlert    = 3
	DefaultPinButtonReset    = 4
	DefaultPinButtonRun      = 17
	DefaultPinButtonShutdown = 27
)

// On drives o high.
func On(o Output) error { return o.Set(true) }

// Off drives o low.
func Off(o Output) error { return o.Set(false) }
