//go:build !linux

package gpio

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealOutput is not available on non-Linux platforms.
type RealOutput struct{}

// NewRealOutput returns an error on non-Linux platforms.
func NewRealOutput(chip string, pin int) (*RealOutput, error) {
	return nil, errUnsupported
}

// Set is not implemented on non-Linux platforms.
func (o *RealOutput) Set(on bool) error { return errUnsupported }

// Value is not implemented on non-Linux platforms.
func (o *RealOutput) Value() bool { return false }

// Close is not implemented on non-Linux platforms.
func (o *RealOutput) Close() error { return nil }

// RealButtons is not available on non-Linux platforms.
type RealButtons struct{}

// NewRealButtons returns an error on non-Linux platforms.
func NewRealButtons(chip string, pins map[Button]int, debounce time.Duration, h Handler) (*RealButtons, error) {
	return nil, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (rb *RealButtons) Close() error { return nil }
