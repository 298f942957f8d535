package countdown

import "time"

// Timer tracks the target instant and run state.
// Not safe for concurrent use; callers serialize access (the controller does
// so under the display lock).
type Timer struct {
	mode      Mode
	direction Direction
	running   bool
	target    time.Time
	last      time.Time
	alert     AlertMode
	duration  time.Duration
}

// New creates a Timer at now. A fixed-target timer starts running; a
// fixed-duration one starts paused with the full duration left.
func New(s Settings, now time.Time) *Timer {
	if s.Mode == "" {
		s.Mode = ModeFixedDuration
	}
	if s.Direction == "" {
		s.Direction = CountDown
	}
	t := &Timer{
		mode:      s.Mode,
		direction: s.Direction,
		running:   s.Mode == ModeFixedTarget,
		target:    s.Target,
		last:      now,
		alert:     AlertNormal,
		duration:  s.Duration,
	}
	if t.mode == ModeFixedDuration {
		t.target = now.Add(s.Duration)
	}
	return t
}

// Reset sets the target to now+Duration and pauses. It only applies in
// ModeFixedDuration and reports whether anything changed.
func (t *Timer) Reset(now time.Time) bool {
	if t.mode != ModeFixedDuration {
		return false
	}
	t.target = now.Add(t.duration)
	t.last = now
	t.running = false
	return true
}

// ToggleRunning flips between running and paused. It only applies in
// ModeFixedDuration and reports whether anything changed.
func (t *Timer) ToggleRunning() bool {
	if t.mode != ModeFixedDuration {
		return false
	}
	t.running = !t.running
	return true
}

// CycleAlertMode advances to the next alert tier and returns it.
func (t *Timer) CycleAlertMode() AlertMode {
	t.alert = t.alert.Next()
	return t.alert
}

// Observe advances the timer to now and returns the time left (or elapsed).
// While paused the target moves forward by the wall-clock time since the
// previous call, so the reading stays frozen.
func (t *Timer) Observe(now time.Time) Reading {
	t.target = t.effectiveTarget(now)
	t.last = now
	return t.reading(now, t.target)
}

// Peek returns what Observe would at now without moving the timer.
func (t *Timer) Peek(now time.Time) Reading {
	return t.reading(now, t.effectiveTarget(now))
}

func (t *Timer) effectiveTarget(now time.Time) time.Time {
	if t.running {
		return t.target
	}
	return t.target.Add(now.Sub(t.last))
}

func (t *Timer) reading(now, target time.Time) Reading {
	if t.direction == CountUp {
		return decompose(now.Sub(target))
	}
	return decompose(target.Sub(now))
}

// Alerting reports whether the blink/buzz pattern should run for r: the timer
// is running and either the extra tier is selected or the target has passed.
func (t *Timer) Alerting(r Reading) bool {
	return t.running && (t.alert == AlertExtraMotivational || r.Expired())
}

// Running reports whether the timer is running.
func (t *Timer) Running() bool { return t.running }

// AlertMode returns the current alert tier.
func (t *Timer) AlertMode() AlertMode { return t.alert }

// State returns a copy of the timer fields.
func (t *Timer) State() State {
	return State{
		Mode:      t.mode,
		Direction: t.direction,
		Running:   t.running,
		Target:    t.target,
		AlertMode: t.alert,
		Duration:  t.duration,
	}
}

func decompose(total time.Duration) Reading {
	d := total
	if d < 0 {
		d = -d
	}
	const day = 24 * time.Hour
	r := Reading{Total: total}
	r.Days = int(d / day)
	d %= day
	r.Hours = int(d / time.Hour)
	d %= time.Hour
	r.Minutes = int(d / time.Minute)
	d %= time.Minute
	r.Seconds = int(d / time.Second)
	d %= time.Second
	r.Micros = int(d / time.Microsecond)
	return r
}
