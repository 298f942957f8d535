// Package display drives a daisy chain of TLC5916 LED drivers, one per
// seven-segment digit, by bit-banging the CLK, SDI, LE and OE lines.
//
// All line activity happens under a single mutex so that a frame, a
// brightness configuration or a caller's Exclusive section is never
// interleaved with another one.
package display

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/countdown-display/internal/gpio"
	"github.com/sweeney/countdown-display/internal/segment"
)

// DefaultChips is the number of driver chips (digits) in the chain.
const DefaultChips = 9

// Lines holds the four control lines of the driver chain.
type Lines struct {
	CLK gpio.Output // shift clock
	SDI gpio.Output // serial data
	LE  gpio.Output // latch enable
	OE  gpio.Output // output enable, active low
}

// Timing holds pulse widths. Zero means as fast as the GPIO allows.
type Timing struct {
	Clock time.Duration
	Latch time.Duration
}

// Options configures a Display.
type Options struct {
	Timing Timing
	// Chips is the number of drivers in the chain (default DefaultChips).
	Chips int
	// Debug logs every rendered frame.
	Debug bool
}

// Display renders text on the driver chain.
type Display struct {
	mu    sync.Mutex
	lines Lines
	opts  Options
	sleep func(time.Duration)
}

// New creates a Display and blanks the outputs (OE high) so nothing is shown
// until the first frame is latched and Enable is called.
func New(lines Lines, opts Options) (*Display, error) {
	if opts.Chips <= 0 {
		opts.Chips = DefaultChips
	}
	d := &Display{
		lines: lines,
		opts:  opts,
		sleep: time.Sleep,
	}
	if err := gpio.On(lines.OE); err != nil {
		return nil, fmt.Errorf("disable outputs: %w", err)
	}
	return d, nil
}

// Session performs display operations while the caller holds the display
// lock. It is only valid inside the function passed to Exclusive.
type Session struct {
	d *Display
}

// Exclusive runs fn with the display lock held. Nothing else can touch the
// lines until fn returns.
func (d *Display) Exclusive(fn func(s *Session) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(&Session{d: d})
}

// Render shows text. See Session.Render.
func (d *Display) Render(text string) error {
	return d.Exclusive(func(s *Session) error { return s.Render(text) })
}

// Enable turns the outputs on.
func (d *Display) Enable() error {
	return d.Exclusive(func(s *Session) error { return s.Enable() })
}

// Disable blanks the outputs without losing the latched frame.
func (d *Display) Disable() error {
	return d.Exclusive(func(s *Session) error { return s.Disable() })
}

// SetBrightness writes code to every driver's configuration register.
func (d *Display) SetBrightness(code Code) error {
	return d.Exclusive(func(s *Session) error { return s.SetBrightness(code) })
}

// Enabled reports whether the outputs are currently on.
func (d *Display) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.lines.OE.Value()
}

// Render shifts in text one character at a time, last character first, and
// latches once at the end. The rightmost digit sits furthest down the chain
// so it has to go in first. Characters without a segment pattern shift in
// nothing.
func (s *Session) Render(text string) error {
	if s.d.opts.Debug {
		log.Printf("display: render %q", text)
	}
	runes := []rune(text)
	for i := len(runes) - 1; i >= 0; i-- {
		if err := s.d.sendSerial(segment.Encode(runes[i])); err != nil {
			return fmt.Errorf("render %q: %w", text, err)
		}
	}
	if err := s.d.latch(); err != nil {
		return fmt.Errorf("render %q: %w", text, err)
	}
	return nil
}

// Enable drives OE low.
func (s *Session) Enable() error {
	return gpio.Off(s.d.lines.OE)
}

// Disable drives OE high.
func (s *Session) Disable() error {
	return gpio.On(s.d.lines.OE)
}

// Enabled reports whether the outputs are currently on.
func (s *Session) Enabled() bool {
	return !s.d.lines.OE.Value()
}

// SetBrightness switches the chain to special mode, shifts code once per
// chip, latches it into the configuration registers and switches back.
// The OE level seen by the caller is the same before and after.
func (s *Session) SetBrightness(code Code) error {
	d := s.d
	oldOE := d.lines.OE.Value()
	bits := code.Bits()

	if err := d.switchMode(ModeSpecial); err != nil {
		return fmt.Errorf("set brightness: %w", err)
	}
	if err := gpio.On(d.lines.OE); err != nil {
		return fmt.Errorf("set brightness: %w", err)
	}
	for i := 0; i < d.opts.Chips; i++ {
		if err := d.sendSerial(bits); err != nil {
			return fmt.Errorf("set brightness: %w", err)
		}
	}
	if err := d.latch(); err != nil {
		return fmt.Errorf("set brightness: %w", err)
	}
	if err := d.lines.OE.Set(oldOE); err != nil {
		return fmt.Errorf("set brightness: %w", err)
	}
	if err := d.switchMode(ModeNormal); err != nil {
		return fmt.Errorf("set brightness: %w", err)
	}
	return nil
}
