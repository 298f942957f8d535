// Package controller runs the countdown: it polls the timer, renders the
// display when the text changes, drives the blink/buzz alert and applies
// button events.
//
// The timer is only touched inside display.Exclusive, so a button handler
// and a loop tick never see each other half done. Events are published and
// the status tracker updated after the lock is released.
package controller

import (
	"fmt"
	"log"
	"time"

	"github.com/sweeney/countdown-display/internal/countdown"
	"github.com/sweeney/countdown-display/internal/display"
	"github.com/sweeney/countdown-display/internal/gpio"
	"github.com/sweeney/countdown-display/internal/mqtt"
	"github.com/sweeney/countdown-display/internal/status"
)

// Brightness holds the configuration codes for the alert tiers.
type Brightness struct {
	Normal display.Code // used in AlertNormal
	Full   display.Code // used in the motivational tiers
}

// Options configures a Controller.
type Options struct {
	Brightness Brightness
	// Poll is the tick interval while running.
	Poll time.Duration
	// IdlePoll is the tick interval while paused.
	IdlePoll time.Duration
	// PowerOff is called on EventShutdown after the SHUTDOWN event is
	// published. Nil means shutdown requests are only logged.
	PowerOff func() error
}

// Controller owns the timer and drives the display from it.
type Controller struct {
	disp    *display.Display
	timer   *countdown.Timer
	buzzer  gpio.Output
	pub     mqtt.Publisher
	tracker *status.Tracker
	opts    Options
	now     func() time.Time

	// Guarded by the display lock.
	rendered    string
	hasRendered bool
	expired     bool
	alerting    bool
}

// New creates a Controller. pub and tracker may be nil.
func New(disp *display.Display, timer *countdown.Timer, buzzer gpio.Output, pub mqtt.Publisher, tracker *status.Tracker, opts Options, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{
		disp:    disp,
		timer:   timer,
		buzzer:  buzzer,
		pub:     pub,
		tracker: tracker,
		opts:    opts,
		now:     now,
	}
}

// Start programs the normal brightness, enables the outputs and resets the
// timer. Call it once before the first Step.
func (c *Controller) Start() error {
	return c.disp.Exclusive(func(s *display.Session) error {
		if err := s.SetBrightness(c.brightnessFor(c.timer.AlertMode())); err != nil {
			return fmt.Errorf("start: %w", err)
		}
		if err := s.Enable(); err != nil {
			return fmt.Errorf("start: %w", err)
		}
		c.timer.Reset(c.now())
		return nil
	})
}

// Step runs one loop iteration and returns how long to wait before the next.
// The returned error comes from the display or buzzer lines and is fatal.
func (c *Controller) Step() (time.Duration, error) {
	var (
		events   []countdown.Event
		state    countdown.State
		reading  countdown.Reading
		text     string
		alerting bool
	)
	err := c.disp.Exclusive(func(s *display.Session) error {
		now := c.now()
		reading = c.timer.Observe(now)
		text = countdown.Format(reading)
		if !c.hasRendered || text != c.rendered {
			if err := s.Render(text); err != nil {
				return err
			}
			c.rendered = text
			c.hasRendered = true
		}

		alerting = c.timer.Alerting(reading)
		if alerting {
			on := countdown.BlinkOn(reading)
			if err := c.setBlink(s, on); err != nil {
				return err
			}
		} else if c.alerting {
			// Alert just ended; don't leave the digits dark or the buzzer on.
			if err := c.setBlink(s, true); err != nil {
				return err
			}
			if err := gpio.Off(c.buzzer); err != nil {
				return fmt.Errorf("buzzer: %w", err)
			}
		}
		c.alerting = alerting

		expired := reading.Expired()
		if expired && !c.expired {
			events = append(events, c.event(now, countdown.EventExpired))
		}
		c.expired = expired

		state = c.timer.State()
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.publish(events)
	if c.tracker != nil {
		c.tracker.Update(state, reading, text, alerting)
	}

	if state.Running {
		return c.opts.Poll, nil
	}
	return c.opts.IdlePoll, nil
}

// setBlink drives the display enable and the buzzer to the same phase.
// Lines are only written when the phase changes.
func (c *Controller) setBlink(s *display.Session, on bool) error {
	if s.Enabled() != on {
		var err error
		if on {
			err = s.Enable()
		} else {
			err = s.Disable()
		}
		if err != nil {
			return err
		}
	}
	if c.buzzer.Value() != on {
		if err := c.buzzer.Set(on); err != nil {
			return fmt.Errorf("buzzer: %w", err)
		}
	}
	return nil
}

// Handle applies one input event.
func (c *Controller) Handle(ev Event) error {
	var (
		events   []countdown.Event
		shutdown bool
	)
	err := c.disp.Exclusive(func(s *display.Session) error {
		now := c.now()
		switch ev {
		case EventBuzzerOn:
			return c.buzzer.Set(true)

		case EventBuzzerOff:
			return c.buzzer.Set(false)

		case EventCycleAlert:
			mode := c.timer.CycleAlertMode()
			if err := s.SetBrightness(c.brightnessFor(mode)); err != nil {
				return err
			}
			if err := s.Enable(); err != nil {
				return err
			}
			events = append(events, c.event(now, countdown.EventAlertMode))

		case EventReset:
			if !c.timer.Reset(now) {
				return nil
			}
			if err := gpio.Off(c.buzzer); err != nil {
				return err
			}
			if err := s.Enable(); err != nil {
				return err
			}
			events = append(events, c.event(now, countdown.EventReset))

		case EventToggleRunning:
			// Fold the pause up to now before the run state flips.
			c.timer.Observe(now)
			if !c.timer.ToggleRunning() {
				return nil
			}
			if c.timer.Running() {
				events = append(events, c.event(now, countdown.EventStarted))
				return nil
			}
			if err := gpio.Off(c.buzzer); err != nil {
				return err
			}
			if err := s.Enable(); err != nil {
				return err
			}
			events = append(events, c.event(now, countdown.EventPaused))

		case EventShutdown:
			shutdown = true

		default:
			return fmt.Errorf("unknown event %v", ev)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("handle %v: %w", ev, err)
	}

	for _, e := range events {
		log.Printf("event: %s (running=%v alert=%s display=%q)", e.Type, e.State.Running, e.State.AlertMode, e.Display)
	}
	c.publish(events)

	if shutdown {
		return c.shutdown()
	}
	return nil
}

// HandleButton is a gpio.Handler. Errors are logged since edge callbacks
// have nowhere to return them.
func (c *Controller) HandleButton(b gpio.Button, pressed bool) {
	ev, ok := FromButton(b, pressed)
	if !ok {
		return
	}
	if err := c.Handle(ev); err != nil {
		log.Printf("button %s: %v", b, err)
	}
}

func (c *Controller) shutdown() error {
	log.Printf("shutdown requested")
	if c.pub != nil {
		event := mqtt.SystemEvent{
			Timestamp: c.now(),
			Event:     "SHUTDOWN",
			Reason:    "BUTTON",
			Retained:  true,
		}
		if c.tracker != nil {
			event.RawPayload = status.FormatStatusEvent(c.tracker.Snapshot(), "SHUTDOWN", "BUTTON")
		}
		if err := c.pub.PublishSystem(event); err != nil {
			log.Printf("failed to publish shutdown event: %v", err)
		}
	}
	if c.opts.PowerOff == nil {
		return nil
	}
	if err := c.opts.PowerOff(); err != nil {
		return fmt.Errorf("power off: %w", err)
	}
	return nil
}

// event builds a timer event. Called with the display lock held; the timer is
// read, not advanced.
func (c *Controller) event(now time.Time, typ countdown.EventType) countdown.Event {
	return countdown.Event{
		Timestamp: now,
		Type:      typ,
		State:     c.timer.State(),
		Display:   countdown.Format(c.timer.Peek(now)),
	}
}

func (c *Controller) publish(events []countdown.Event) {
	for _, e := range events {
		if c.tracker != nil {
			c.tracker.RecordEvent(e.Type)
		}
		if c.pub == nil {
			continue
		}
		if err := c.pub.Publish(e); err != nil {
			log.Printf("publish error: %v", err)
		}
	}
}

func (c *Controller) brightnessFor(mode countdown.AlertMode) display.Code {
	if mode == countdown.AlertNormal {
		return c.opts.Brightness.Normal
	}
	return c.opts.Brightness.Full
}
