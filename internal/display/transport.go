package display

import (
	"time"

	"github.com/sweeney/countdown-display/internal/gpio"
)

// Mode selects which TLC5916 register the shift register feeds on latch.
type Mode int

const (
	ModeNormal  Mode = iota // output register (segment data)
	ModeSpecial             // configuration register (brightness)
)

func (m Mode) String() string {
	if m == ModeSpecial {
		return "special"
	}
	return "normal"
}

// Code is an 8-bit TLC5916 configuration code. It goes out on SDI bit 0
// first, so bit 7 (CM) is the last bit shifted in for each chip.
type Code byte

// Brightness codes used by the alert modes.
const (
	CodeSoft Code = 0x00
	CodeFull Code = 0xFF
)

// Bits returns the code MSB first.
func (c Code) Bits() []bool {
	bits := make([]bool, 8)
	for i := range bits {
		bits[i] = c&(0x80>>uint(i)) != 0
	}
	return bits
}

func (d *Display) wait(t time.Duration) {
	if t > 0 {
		d.sleep(t)
	}
}

// pulse raises o for width, with width/2 of settle time either side.
func (d *Display) pulse(o gpio.Output, width time.Duration) error {
	d.wait(width / 2)
	if err := gpio.On(o); err != nil {
		return err
	}
	d.wait(width)
	if err := gpio.Off(o); err != nil {
		return err
	}
	d.wait(width / 2)
	return nil
}

func (d *Display) clock() error {
	return d.pulse(d.lines.CLK, d.opts.Timing.Clock)
}

func (d *Display) sendBit(bit bool) error {
	if err := d.lines.SDI.Set(bit); err != nil {
		return err
	}
	return d.clock()
}

// sendSerial shifts bits in reverse: the first bit in travels all the way
// down to OUT7, so bits[0] must be sent last to land on OUT0.
func (d *Display) sendSerial(bits []bool) error {
	for i := len(bits) - 1; i >= 0; i-- {
		if err := d.sendBit(bits[i]); err != nil {
			return err
		}
	}
	return nil
}

func (d *Display) latch() error {
	return d.pulse(d.lines.LE, d.opts.Timing.Latch)
}

// switchMode performs the TLC5916 mode switch: OE is toggled across three
// clocks, then LE is sampled on the fourth clock (high = special, low =
// normal). The caller's OE level is restored afterwards.
func (d *Display) switchMode(m Mode) error {
	l := d.lines
	oldOE := l.OE.Value()
	steps := []func() error{
		func() error { return gpio.Off(l.LE) },
		func() error { return gpio.On(l.OE) },
		d.clock,
		func() error { return gpio.Off(l.OE) },
		d.clock,
		func() error { return gpio.On(l.OE) },
		d.clock,
		func() error { return l.LE.Set(m == ModeSpecial) },
		d.clock,
		func() error { return gpio.Off(l.LE) },
		d.clock,
		func() error { return l.OE.Set(oldOE) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
