//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealOutput drives a single output line on the Linux GPIO character device.
type RealOutput struct {
	line  *gpiocdev.Line
	mu    sync.Mutex
	value bool
}

// NewRealOutput requests pin on chip as an output, initially low.
func NewRealOutput(chip string, pin int) (*RealOutput, error) {
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", pin, err)
	}
	return &RealOutput{line: line}, nil
}

// Set drives the line high (on) or low.
func (o *RealOutput) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("set pin %d: %w", o.line.Offset(), err)
	}
	o.value = on
	return nil
}

// Value returns the last level written.
func (o *RealOutput) Value() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

// Close releases the line.
// Reconfigures it to input with pull-down (matching Pi boot defaults) before
// closing so the attached hardware sees a defined level after exit.
func (o *RealOutput) Close() error {
	var errs []error
	if err := o.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", o.line.Offset(), err))
	}
	if err := o.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin %d: %w", o.line.Offset(), err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealButtons watches button inputs for edges.
// Buttons short the input to ground, so lines are requested active-low with
// pull-up: a rising logical edge is a press.
type RealButtons struct {
	lines []*gpiocdev.Line
}

// NewRealButtons requests one input line per entry in pins and calls h on
// every debounced edge.
func NewRealButtons(chip string, pins map[Button]int, debounce time.Duration, h Handler) (*RealButtons, error) {
	rb := &RealButtons{}
	for _, b := range Buttons {
		pin, ok := pins[b]
		if !ok {
			continue
		}
		b := b
		opts := []gpiocdev.LineReqOption{
			gpiocdev.AsInput,
			gpiocdev.AsActiveLow,
			gpiocdev.WithPullUp,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
				h(b, evt.Type == gpiocdev.LineEventRisingEdge)
			}),
		}
		if debounce > 0 {
			opts = append(opts, gpiocdev.WithDebounce(debounce))
		}
		line, err := gpiocdev.RequestLine(chip, pin, opts...)
		if err != nil {
			rb.Close()
			return nil, fmt.Errorf("request %s button pin %d: %w", b, pin, err)
		}
		rb.lines = append(rb.lines, line)
	}
	return rb, nil
}

// Close stops edge watching and releases all button lines.
func (rb *RealButtons) Close() error {
	var errs []error
	for _, l := range rb.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", l.Offset(), err))
		}
	}
	rb.lines = nil
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
