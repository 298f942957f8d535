// Package config parses the countdown.toml hardware and timer configuration.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sweeney/countdown-display/internal/countdown"
	"github.com/sweeney/countdown-display/internal/display"
	"github.com/sweeney/countdown-display/internal/gpio"
)

// TargetLayout is the local date-time format of timer.target.
const TargetLayout = "2006-01-02T15:04:05"

// Config is the top-level countdown.toml configuration.
type Config struct {
	Pins    PinsConfig    `toml:"pins"`
	Buttons ButtonsConfig `toml:"buttons"`
	Display DisplayConfig `toml:"display"`
	Timer   TimerConfig   `toml:"timer"`
	Loop    LoopConfig    `toml:"loop"`
}

// PinsConfig holds BCM line offsets on Chip.
type PinsConfig struct {
	Chip           string `toml:"chip"`
	CLK            int    `toml:"clk"`
	SDI            int    `toml:"sdi"`
	LE             int    `toml:"le"`
	OE             int    `toml:"oe"`
	Buzzer         int    `toml:"buzzer"`
	BuzzerButton   int    `toml:"buzzer_button"`
	AlertButton    int    `toml:"alert_button"`
	ResetButton    int    `toml:"reset_button"`
	RunButton      int    `toml:"run_button"`
	ShutdownButton int    `toml:"shutdown_button"`
}

// ButtonsConfig controls button edge detection.
type ButtonsConfig struct {
	Debounce Duration `toml:"debounce"`
}

// DisplayConfig controls the driver chain.
type DisplayConfig struct {
	ClockPulse       Duration `toml:"clock_pulse"`
	LatchPulse       Duration `toml:"latch_pulse"`
	Chips            int      `toml:"chips"`
	BrightnessNormal int      `toml:"brightness_normal"`
	BrightnessFull   int      `toml:"brightness_full"`
}

// TimerConfig selects what the timer counts towards.
type TimerConfig struct {
	Mode      string   `toml:"mode"`      // "fixed" or "target"
	Direction string   `toml:"direction"` // "down" or "up"
	Duration  Duration `toml:"duration"`
	Target    string   `toml:"target"` // local time, TargetLayout
}

// LoopConfig controls the controller poll rate.
type LoopConfig struct {
	Poll     Duration `toml:"poll"`      // while running
	IdlePoll Duration `toml:"idle_poll"` // while paused
}

// Duration is a time.Duration written as a string ("10ms") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config matching the reference wiring: a nine-digit
// TLC5916 chain, five buttons and a buzzer, counting down six minutes.
func Defaults() Config {
	return Config{
		Pins: PinsConfig{
			Chip:           "gpiochip0",
			CLK:            gpio.DefaultPinCLK,
			SDI:            gpio.DefaultPinSDI,
			LE:             gpio.DefaultPinLE,
			OE:             gpio.DefaultPinOE,
			Buzzer:         gpio.DefaultPinBuzzer,
			BuzzerButton:   gpio.DefaultPinButtonBuzzer,
			AlertButton:    gpio.DefaultPinButtonAlert,
			ResetButton:    gpio.DefaultPinButtonReset,
			RunButton:      gpio.DefaultPinButtonRun,
			ShutdownButton: gpio.DefaultPinButtonShutdown,
		},
		Buttons: ButtonsConfig{Debounce: Duration{10 * time.Millisecond}},
		Display: DisplayConfig{
			Chips:            display.DefaultChips,
			BrightnessNormal: int(display.CodeSoft),
			BrightnessFull:   int(display.CodeFull),
		},
		Timer: TimerConfig{
			Mode:      "fixed",
			Direction: "down",
			Duration:  Duration{6 * time.Minute},
		},
		Loop: LoopConfig{
			Poll:     Duration{5 * time.Millisecond},
			IdlePoll: Duration{10 * time.Millisecond},
		},
	}
}

// Load reads countdown.toml from path. An empty path returns Defaults.
// Returns an error if the file contains unknown keys (likely typos) or fails
// validation.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return &cfg, nil
	}

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: unknown keys in %s: %s (possible typos?)", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the configuration for issues that would cause confusing
// runtime failures. It returns all found issues joined together.
func (c *Config) Validate() error {
	var errs []error

	if _, err := parseMode(c.Timer.Mode); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseDirection(c.Timer.Direction); err != nil {
		errs = append(errs, err)
	}
	if c.Timer.Duration.Duration < 0 {
		errs = append(errs, fmt.Errorf("timer.duration must be >= 0"))
	}
	if c.Timer.Mode == "target" {
		if c.Timer.Target == "" {
			errs = append(errs, fmt.Errorf("timer.target must be set when timer.mode is \"target\""))
		} else if _, err := ParseTarget(c.Timer.Target, time.Local); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Display.Chips <= 0 {
		errs = append(errs, fmt.Errorf("display.chips must be > 0"))
	}
	if c.Display.ClockPulse.Duration < 0 {
		errs = append(errs, fmt.Errorf("display.clock_pulse must be >= 0"))
	}
	if c.Display.LatchPulse.Duration < 0 {
		errs = append(errs, fmt.Errorf("display.latch_pulse must be >= 0"))
	}
	if c.Display.BrightnessNormal < 0 || c.Display.BrightnessNormal > 0xFF {
		errs = append(errs, fmt.Errorf("display.brightness_normal must be 0-255"))
	}
	if c.Display.BrightnessFull < 0 || c.Display.BrightnessFull > 0xFF {
		errs = append(errs, fmt.Errorf("display.brightness_full must be 0-255"))
	}

	if c.Loop.Poll.Duration <= 0 {
		errs = append(errs, fmt.Errorf("loop.poll must be > 0"))
	}
	if c.Loop.IdlePoll.Duration <= 0 {
		errs = append(errs, fmt.Errorf("loop.idle_poll must be > 0"))
	}
	if c.Buttons.Debounce.Duration < 0 {
		errs = append(errs, fmt.Errorf("buttons.debounce must be >= 0"))
	}

	if c.Pins.Chip == "" {
		errs = append(errs, fmt.Errorf("pins.chip must not be empty"))
	}
	errs = append(errs, c.checkPins()...)

	return errors.Join(errs...)
}

func (c *Config) checkPins() []error {
	p := c.Pins
	named := map[string]int{
		"clk":             p.CLK,
		"sdi":             p.SDI,
		"le":              p.LE,
		"oe":              p.OE,
		"buzzer":          p.Buzzer,
		"buzzer_button":   p.BuzzerButton,
		"alert_button":    p.AlertButton,
		"reset_button":    p.ResetButton,
		"run_button":      p.RunButton,
		"shutdown_button": p.ShutdownButton,
	}
	names := make([]string, 0, len(named))
	for n := range named {
		names = append(names, n)
	}
	sort.Strings(names)

	var errs []error
	seen := map[int]string{}
	for _, n := range names {
		pin := named[n]
		if pin < 0 {
			errs = append(errs, fmt.Errorf("pins.%s must be >= 0", n))
			continue
		}
		if other, ok := seen[pin]; ok {
			errs = append(errs, fmt.Errorf("pins.%s and pins.%s both use pin %d", other, n, pin))
			continue
		}
		seen[pin] = n
	}
	return errs
}

// ButtonPins maps each button to its pin.
func (c *Config) ButtonPins() map[gpio.Button]int {
	return map[gpio.Button]int{
		gpio.ButtonBuzzer:   c.Pins.BuzzerButton,
		gpio.ButtonAlert:    c.Pins.AlertButton,
		gpio.ButtonReset:    c.Pins.ResetButton,
		gpio.ButtonRun:      c.Pins.RunButton,
		gpio.ButtonShutdown: c.Pins.ShutdownButton,
	}
}

// DisplayOptions converts the display section.
func (c *Config) DisplayOptions(debug bool) display.Options {
	return display.Options{
		Timing: display.Timing{
			Clock: c.Display.ClockPulse.Duration,
			Latch: c.Display.LatchPulse.Duration,
		},
		Chips: c.Display.Chips,
		Debug: debug,
	}
}

// TimerSettings converts the timer section, reading timer.target in loc.
func (c *Config) TimerSettings(loc *time.Location) (countdown.Settings, error) {
	mode, err := parseMode(c.Timer.Mode)
	if err != nil {
		return countdown.Settings{}, err
	}
	dir, err := parseDirection(c.Timer.Direction)
	if err != nil {
		return countdown.Settings{}, err
	}
	s := countdown.Settings{
		Mode:      mode,
		Direction: dir,
		Duration:  c.Timer.Duration.Duration,
	}
	if c.Timer.Target != "" {
		target, err := ParseTarget(c.Timer.Target, loc)
		if err != nil {
			return countdown.Settings{}, err
		}
		s.Target = target
	}
	return s, nil
}

// ParseTarget parses a local TargetLayout time, or an RFC 3339 time with offset.
func ParseTarget(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(TargetLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timer.target %q: want %s or RFC 3339", s, TargetLayout)
	}
	return t, nil
}

func parseMode(s string) (countdown.Mode, error) {
	switch s {
	case "fixed":
		return countdown.ModeFixedDuration, nil
	case "target":
		return countdown.ModeFixedTarget, nil
	}
	return "", fmt.Errorf("timer.mode must be \"fixed\" or \"target\", got %q", s)
}

func parseDirection(s string) (countdown.Direction, error) {
	switch s {
	case "down":
		return countdown.CountDown, nil
	case "up":
		return countdown.CountUp, nil
	}
	return "", fmt.Errorf("timer.direction must be \"down\" or \"up\", got %q", s)
}
