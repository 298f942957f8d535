package controller

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/countdown-display/internal/countdown"
	"github.com/sweeney/countdown-display/internal/display"
	"github.com/sweeney/countdown-display/internal/gpio"
	"github.com/sweeney/countdown-display/internal/mqtt"
	"github.com/sweeney/countdown-display/internal/status"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type rig struct {
	rec     *gpio.Recorder
	sdi     *gpio.FakeOutput
	oe      *gpio.FakeOutput
	buzzer  *gpio.FakeOutput
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	clock   *clock
	timer   *countdown.Timer
	c       *Controller
	powered int
}

func newRig(t *testing.T, s countdown.Settings) *rig {
	t.Helper()
	rec := gpio.NewRecorder()
	r := &rig{
		rec:     rec,
		sdi:     gpio.NewFakeOutput("SDI", rec),
		oe:      gpio.NewFakeOutput("OE", rec),
		buzzer:  gpio.NewFakeOutput("BUZZER", rec),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(t0, status.Config{}),
		clock:   &clock{t: t0},
	}
	d, err := display.New(display.Lines{
		CLK: gpio.NewFakeOutput("CLK", rec),
		SDI: r.sdi,
		LE:  gpio.NewFakeOutput("LE", rec),
		OE:  r.oe,
	}, display.Options{})
	if err != nil {
		t.Fatalf("display.New: %v", err)
	}
	r.timer = countdown.New(s, t0)
	r.c = New(d, r.timer, r.buzzer, r.pub, r.tracker, Options{
		Brightness: Brightness{Normal: display.CodeSoft, Full: display.CodeFull},
		Poll:       5 * time.Millisecond,
		IdlePoll:   10 * time.Millisecond,
		PowerOff: func() error {
			r.powered++
			return nil
		},
	}, r.clock.now)
	return r
}

func sixMinutes() countdown.Settings {
	return countdown.Settings{Mode: countdown.ModeFixedDuration, Direction: countdown.CountDown, Duration: 6 * time.Minute}
}

func (r *rig) step(t *testing.T) time.Duration {
	t.Helper()
	d, err := r.c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	return d
}

func (r *rig) handle(t *testing.T, ev Event) {
	t.Helper()
	if err := r.c.Handle(ev); err != nil {
		t.Fatalf("Handle(%v): %v", ev, err)
	}
}

func (r *rig) enabled() bool { return !r.oe.Value() }

// latches counts rising LE edges since the last recorder reset.
func (r *rig) latches() int {
	n := 0
	for _, w := range r.rec.Writes() {
		if w.Line == "LE" && w.Value {
			n++
		}
	}
	return n
}

// shifted returns SDI sampled at every rising CLK edge.
func (r *rig) shifted() []bool {
	var sdi bool
	var out []bool
	for _, w := range r.rec.Writes() {
		switch w.Line {
		case "SDI":
			sdi = w.Value
		case "CLK":
			if w.Value {
				out = append(out, sdi)
			}
		}
	}
	return out
}

// assertBrightness checks that the recorded writes are one brightness
// configuration of nine chips with every code bit equal to want.
func (r *rig) assertBrightness(t *testing.T, want bool) {
	t.Helper()
	bits := r.shifted()
	// 5 clocks into special mode, 9x8 code bits, 5 clocks back.
	if len(bits) != 5+72+5 {
		t.Fatalf("clock pulses: got %d, want 82", len(bits))
	}
	for i, b := range bits[5:77] {
		if b != want {
			t.Fatalf("code bit %d: got %v, want %v", i, b, want)
		}
	}
}

func TestFromButton(t *testing.T) {
	tests := []struct {
		button  gpio.Button
		pressed bool
		want    Event
		ok      bool
	}{
		{gpio.ButtonBuzzer, true, EventBuzzerOn, true},
		{gpio.ButtonBuzzer, false, EventBuzzerOff, true},
		{gpio.ButtonAlert, true, EventCycleAlert, true},
		{gpio.ButtonAlert, false, 0, false},
		{gpio.ButtonReset, true, EventReset, true},
		{gpio.ButtonReset, false, 0, false},
		{gpio.ButtonRun, true, EventToggleRunning, true},
		{gpio.ButtonRun, false, 0, false},
		{gpio.ButtonShutdown, true, EventShutdown, true},
		{gpio.ButtonShutdown, false, 0, false},
		{gpio.Button(99), true, 0, false},
	}
	for _, tt := range tests {
		got, ok := FromButton(tt.button, tt.pressed)
		if ok != tt.ok || got != tt.want {
			t.Errorf("FromButton(%v, %v) = %v, %v; want %v, %v", tt.button, tt.pressed, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEventString(t *testing.T) {
	tests := map[Event]string{
		EventBuzzerOn:      "BUZZER_ON",
		EventBuzzerOff:     "BUZZER_OFF",
		EventCycleAlert:    "CYCLE_ALERT",
		EventReset:         "RESET",
		EventToggleRunning: "TOGGLE_RUNNING",
		EventShutdown:      "SHUTDOWN",
		Event(42):          "EVENT(42)",
	}
	for ev, want := range tests {
		if got := ev.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(ev), got, want)
		}
	}
}

func TestStart(t *testing.T) {
	r := newRig(t, sixMinutes())
	r.rec.Reset()
	if r.enabled() {
		t.Fatal("display should start disabled")
	}

	r.clock.advance(time.Minute)
	if err := r.c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if !r.enabled() {
		t.Error("Start should enable the display")
	}
	r.assertBrightness(t, false)

	s := r.timer.State()
	if s.Running {
		t.Error("fixed-duration timer should be paused after Start")
	}
	if want := t0.Add(7 * time.Minute); !s.Target.Equal(want) {
		t.Errorf("Target: got %v, want %v", s.Target, want)
	}
	if len(r.pub.Events) != 0 {
		t.Errorf("Start should not publish, got %v", r.pub.EventTypes())
	}
}

func TestStartFixedTargetKeepsTarget(t *testing.T) {
	target := t0.Add(time.Hour)
	r := newRig(t, countdown.Settings{Mode: countdown.ModeFixedTarget, Target: target})
	if err := r.c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s := r.timer.State()
	if !s.Running {
		t.Error("fixed-target timer should run")
	}
	if !s.Target.Equal(target) {
		t.Errorf("Target: got %v, want %v", s.Target, target)
	}
}

func TestStepRendersOnlyOnChange(t *testing.T) {
	r := newRig(t, sixMinutes())
	r.rec.Reset()

	for i := 0; i < 5; i++ {
		r.step(t)
		r.clock.advance(10 * time.Millisecond)
	}
	if got := r.latches(); got != 1 {
		t.Errorf("paused timer: got %d latches, want 1", got)
	}

	r.handle(t, EventToggleRunning)
	r.rec.Reset()

	// 100 ticks of 5ms cross 0.5s, so at most one seconds change.
	for i := 0; i < 100; i++ {
		r.clock.advance(5 * time.Millisecond)
		r.step(t)
	}
	if got := r.latches(); got != 1 {
		t.Errorf("running for 0.5s: got %d latches, want 1", got)
	}
	if snap := r.tracker.Snapshot(); snap.Display != "  0.00.05.59" {
		t.Errorf("Display: got %q", snap.Display)
	}
}

func TestStepReturnsPollInterval(t *testing.T) {
	r := newRig(t, sixMinutes())

	if got := r.step(t); got != 10*time.Millisecond {
		t.Errorf("paused: got %v, want 10ms", got)
	}
	r.handle(t, EventToggleRunning)
	if got := r.step(t); got != 5*time.Millisecond {
		t.Errorf("running: got %v, want 5ms", got)
	}
}

func TestStepUpdatesTracker(t *testing.T) {
	r := newRig(t, sixMinutes())
	r.handle(t, EventToggleRunning)
	r.clock.advance(time.Second + time.Microsecond)
	r.step(t)

	snap := r.tracker.Snapshot()
	if !snap.Observed {
		t.Error("expected Observed=true")
	}
	if snap.Display != "  0.00.05.58" {
		t.Errorf("Display: got %q, want %q", snap.Display, "  0.00.05.58")
	}
	if !snap.Timer.Running {
		t.Error("expected Running=true")
	}
	if want := 5*time.Minute + 59*time.Second - time.Microsecond; snap.Remaining != want {
		t.Errorf("Remaining: got %v, want %v", snap.Remaining, want)
	}
}

func TestStepExpiredShowsSentinelAndPublishesOnce(t *testing.T) {
	r := newRig(t, countdown.Settings{Mode: countdown.ModeFixedTarget, Target: t0.Add(time.Second)})

	r.step(t)
	if len(r.pub.Events) != 0 {
		t.Fatalf("unexpected events before expiry: %v", r.pub.EventTypes())
	}

	r.clock.set(t0.Add(2 * time.Second))
	for i := 0; i < 10; i++ {
		r.step(t)
		r.clock.advance(5 * time.Millisecond)
	}

	snap := r.tracker.Snapshot()
	if snap.Display != countdown.ExpiredText {
		t.Errorf("Display: got %q, want %q", snap.Display, countdown.ExpiredText)
	}
	if !snap.Expired || !snap.Alerting {
		t.Errorf("expected expired and alerting: %+v", snap)
	}
	types := r.pub.EventTypes()
	if len(types) != 1 || types[0] != countdown.EventExpired {
		t.Errorf("events: got %v, want [EXPIRED]", types)
	}
	if r.pub.Events[0].Display != countdown.ExpiredText {
		t.Errorf("event display: got %q", r.pub.Events[0].Display)
	}
}

func TestStepBlinkAndBuzzWhenExpired(t *testing.T) {
	r := newRig(t, countdown.Settings{Mode: countdown.ModeFixedTarget, Target: t0})
	if err := r.c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	tests := []struct {
		offset time.Duration
		on     bool
	}{
		{100 * time.Millisecond, true},
		{250 * time.Millisecond, true},
		{400 * time.Millisecond, false},
		{600 * time.Millisecond, true},
		{800 * time.Millisecond, false},
		{time.Second + 50*time.Millisecond, true},
	}
	for _, tt := range tests {
		r.clock.set(t0.Add(5*time.Second + tt.offset))
		r.step(t)
		if r.enabled() != tt.on {
			t.Errorf("+%v: display enabled=%v, want %v", tt.offset, r.enabled(), tt.on)
		}
		if r.buzzer.Value() != tt.on {
			t.Errorf("+%v: buzzer=%v, want %v", tt.offset, r.buzzer.Value(), tt.on)
		}
	}
}

func TestStepBlinkWritesOnlyOnPhaseChange(t *testing.T) {
	r := newRig(t, countdown.Settings{Mode: countdown.ModeFixedTarget, Target: t0})
	r.clock.set(t0.Add(5*time.Second + 10*time.Millisecond))
	r.step(t)
	sets := r.buzzer.Sets()

	for i := 0; i < 20; i++ {
		r.clock.advance(5 * time.Millisecond)
		r.step(t)
	}
	// 10ms..110ms is all in the first on-quarter.
	if got := r.buzzer.Sets(); got != sets {
		t.Errorf("buzzer written %d extra times in a steady phase", got-sets)
	}
}

func TestNoAlertWhenPaused(t *testing.T) {
	r := newRig(t, sixMinutes())
	r.handle(t, EventCycleAlert)
	r.handle(t, EventCycleAlert)
	if got := r.timer.AlertMode(); got != countdown.AlertExtraMotivational {
		t.Fatalf("AlertMode: got %s", got)
	}

	r.clock.advance(400 * time.Millisecond)
	r.step(t)
	if !r.enabled() {
		t.Error("paused timer should not blink")
	}
	if r.buzzer.Value() {
		t.Error("paused timer should not buzz")
	}
}

func TestExtraMotivationalAlertsBeforeExpiry(t *testing.T) {
	r := newRig(t, sixMinutes())
	r.handle(t, EventToggleRunning)
	r.handle(t, EventCycleAlert)
	r.handle(t, EventCycleAlert)

	// 6m left minus 0.6s: sub-second part is 0.4s, in an off quarter.
	r.clock.advance(600 * time.Millisecond)
	r.step(t)
	if r.enabled() || r.buzzer.Value() {
		t.Errorf("off phase: enabled=%v buzzer=%v", r.enabled(), r.buzzer.Value())
	}

	// 0.9s elapsed: sub-second part is 0.1s, in an on quarter.
	r.clock.advance(300 * time.Millisecond)
	r.step(t)
	if !r.enabled() || !r.buzzer.Value() {
		t.Errorf("on phase: enabled=%v buzzer=%v", r.enabled(), r.buzzer.Value())
	}
}

func TestMotivationalDoesNotAlertBeforeExpiry(t *testing.T) {
	r := newRig(t, sixMinutes())
	r.handle(t, EventToggleRunning)
	r.handle(t, EventCycleAlert)

	r.clock.advance(600 * time.Millisecond)
	r.step(t)
	if !r.enabled() || r.buzzer.Value() {
		t.Errorf("enabled=%v buzzer=%v, want steady display and silence", r.enabled(), r.buzzer.Value())
	}
}

func TestAlertEndSilencesBuzzer(t *testing.T) {
	r := newRig(t, sixMinutes())
	r.handle(t, EventToggleRunning)
	r.handle(t, EventCycleAlert)
	r.handle(t, EventCycleAlert)

	// On phase: buzzer sounding.
	r.clock.advance(900 * time.Millisecond)
	r.step(t)
	if !r.buzzer.Value() {
		t.Fatal("expected buzzer on")
	}

	r.handle(t, EventCycleAlert) // back to NORMAL
	r.clock.advance(5 * time.Millisecond)
	r.step(t)
	if r.buzzer.Value() {
		t.Error("buzzer should stop when the alert ends")
	}
	if !r.enabled() {
		t.Error("display should be on when the alert ends")
	}
}

func TestHandleToggleRunning(t *testing.T) {
	r := newRig(t, sixMinutes())
	r.step(t)

	r.handle(t, EventToggleRunning)
	if !r.timer.Running() {
		t.Fatal("expected running")
	}
	r.clock.advance(10 * time.Second)
	r.step(t)

	r.buzzer.Set(true)
	r.c.disp.Disable()
	r.handle(t, EventToggleRunning)
	if r.timer.Running() {
		t.Fatal("expected paused")
	}
	if r.buzzer.Value() {
		t.Error("pause should silence the buzzer")
	}
	if !r.enabled() {
		t.Error("pause should re-enable the display")
	}

	types := r.pub.EventTypes()
	if len(types) != 2 || types[0] != countdown.EventStarted || types[1] != countdown.EventPaused {
		t.Fatalf("events: got %v, want [STARTED PAUSED]", types)
	}
	if got := r.pub.Events[1].Display; got != "  0.00.05.50" {
		t.Errorf("PAUSED display: got %q", got)
	}
	if c := r.tracker.Snapshot().Counts; c.Started != 1 || c.Paused != 1 {
		t.Errorf("Counts: got %+v", c)
	}
}

func TestHandleToggleFoldsPauseUpToPress(t *testing.T) {
	r := newRig(t, sixMinutes())
	r.step(t)

	// No Step while paused: the press itself must account for the 30s.
	r.clock.advance(30 * time.Second)
	r.handle(t, EventToggleRunning)
	r.clock.advance(time.Second)
	r.step(t)

	if got := r.tracker.Snapshot().Remaining; got != 5*time.Minute+59*time.Second {
		t.Errorf("Remaining: got %v, want 5m59s", got)
	}
}

func TestHandleReset(t *testing.T) {
	r := newRig(t, sixMinutes())
	r.handle(t, EventToggleRunning)
	r.clock.advance(2 * time.Minute)
	r.step(t)

	r.buzzer.Set(true)
	r.handle(t, EventReset)

	if r.timer.Running() {
		t.Error("reset should pause")
	}
	if r.buzzer.Value() {
		t.Error("reset should silence the buzzer")
	}
	types := r.pub.EventTypes()
	if types[len(types)-1] != countdown.EventReset {
		t.Fatalf("events: got %v, want RESET last", types)
	}
	if got := r.pub.Events[len(types)-1].Display; got != "  0.00.06.00" {
		t.Errorf("RESET display: got %q", got)
	}

	r.clock.advance(time.Second)
	r.step(t)
	if got := r.tracker.Snapshot().Display; got != "  0.00.06.00" {
		t.Errorf("Display after reset: got %q", got)
	}
}

func TestHandleResetFixedTargetIsNoop(t *testing.T) {
	r := newRig(t, countdown.Settings{Mode: countdown.ModeFixedTarget, Target: t0.Add(time.Hour)})
	r.handle(t, EventBuzzerOn)
	before := r.timer.State()

	r.handle(t, EventReset)
	r.handle(t, EventToggleRunning)

	if after := r.timer.State(); after != before {
		t.Errorf("state changed: before %+v, after %+v", before, after)
	}
	if len(r.pub.Events) != 0 {
		t.Errorf("no events expected, got %v", r.pub.EventTypes())
	}
	if !r.buzzer.Value() {
		t.Error("reset in fixed target mode should leave the held buzzer on")
	}
}

func TestHandleCycleAlert(t *testing.T) {
	r := newRig(t, sixMinutes())

	tests := []struct {
		want countdown.AlertMode
		full bool
	}{
		{countdown.AlertMotivational, true},
		{countdown.AlertExtraMotivational, true},
		{countdown.AlertNormal, false},
	}
	for _, tt := range tests {
		r.c.disp.Disable()
		r.rec.Reset()
		r.handle(t, EventCycleAlert)

		if got := r.timer.AlertMode(); got != tt.want {
			t.Errorf("AlertMode: got %s, want %s", got, tt.want)
		}
		r.assertBrightness(t, tt.full)
		if !r.enabled() {
			t.Errorf("%s: display should be enabled", tt.want)
		}
	}

	if len(r.pub.Events) != 3 {
		t.Fatalf("events: got %v", r.pub.EventTypes())
	}
	for i, e := range r.pub.Events {
		if e.Type != countdown.EventAlertMode {
			t.Errorf("event %d: got %s", i, e.Type)
		}
		if e.State.AlertMode != tests[i].want {
			t.Errorf("event %d alert mode: got %s, want %s", i, e.State.AlertMode, tests[i].want)
		}
	}
}

func TestHandleEventLeavesPausedTimerAlone(t *testing.T) {
	r := newRig(t, sixMinutes())
	r.clock.advance(5 * time.Second)
	before := r.timer.State()

	r.handle(t, EventCycleAlert)

	after := r.timer.State()
	if !after.Target.Equal(before.Target) {
		t.Errorf("target moved from %v to %v while building the event", before.Target, after.Target)
	}
	if len(r.pub.Events) != 1 {
		t.Fatalf("events: got %v", r.pub.EventTypes())
	}
	if got := r.pub.Events[0].Display; got != "  0.00.06.00" {
		t.Errorf("Display: got %q", got)
	}
}

func TestHandleBuzzer(t *testing.T) {
	r := newRig(t, sixMinutes())

	r.handle(t, EventBuzzerOn)
	if !r.buzzer.Value() {
		t.Error("expected buzzer on")
	}
	r.handle(t, EventBuzzerOff)
	if r.buzzer.Value() {
		t.Error("expected buzzer off")
	}
	if len(r.pub.Events) != 0 {
		t.Errorf("buzzer should not publish, got %v", r.pub.EventTypes())
	}
}

func TestHandleShutdown(t *testing.T) {
	r := newRig(t, sixMinutes())
	r.handle(t, EventShutdown)

	if r.powered != 1 {
		t.Errorf("PowerOff calls: got %d, want 1", r.powered)
	}
	if len(r.pub.SystemEvents) != 1 {
		t.Fatalf("system events: got %d, want 1", len(r.pub.SystemEvents))
	}
	ev := r.pub.SystemEvents[0]
	if ev.Event != "SHUTDOWN" || ev.Reason != "BUTTON" || !ev.Retained {
		t.Errorf("unexpected shutdown event: %+v", ev)
	}
	if ev.RawPayload == nil {
		t.Error("expected status payload")
	}
}

func TestHandleShutdownPowerOffError(t *testing.T) {
	r := newRig(t, sixMinutes())
	r.c.opts.PowerOff = func() error { return errors.New("permission denied") }

	if err := r.c.Handle(EventShutdown); err == nil {
		t.Error("expected power-off error")
	}
}

func TestHandleButton(t *testing.T) {
	r := newRig(t, sixMinutes())
	buttons := gpio.NewFakeButtons(r.c.HandleButton)

	buttons.Click(gpio.ButtonRun)
	if !r.timer.Running() {
		t.Error("run click should start the timer")
	}
	buttons.Press(gpio.ButtonBuzzer)
	if !r.buzzer.Value() {
		t.Error("buzzer press should sound")
	}
	buttons.Release(gpio.ButtonBuzzer)
	if r.buzzer.Value() {
		t.Error("buzzer release should silence")
	}
	buttons.Click(gpio.ButtonAlert)
	if got := r.timer.AlertMode(); got != countdown.AlertMotivational {
		t.Errorf("AlertMode: got %s", got)
	}

	types := r.pub.EventTypes()
	if len(types) != 2 || types[0] != countdown.EventStarted || types[1] != countdown.EventAlertMode {
		t.Errorf("events: got %v", types)
	}
}

func TestStepPropagatesLineError(t *testing.T) {
	r := newRig(t, sixMinutes())
	r.sdi.SetError = errors.New("line gone")

	if _, err := r.c.Step(); err == nil {
		t.Fatal("expected error")
	}
	if r.tracker.Snapshot().Observed {
		t.Error("tracker should not be updated on a failed step")
	}
}

func TestHandlePropagatesLineError(t *testing.T) {
	r := newRig(t, sixMinutes())
	r.buzzer.SetError = errors.New("line gone")

	if err := r.c.Handle(EventBuzzerOn); err == nil {
		t.Fatal("expected error")
	}
}

func TestPublishErrorDoesNotStopLoop(t *testing.T) {
	r := newRig(t, countdown.Settings{Mode: countdown.ModeFixedTarget, Target: t0})
	r.pub.PublishError = errors.New("broker down")

	r.clock.advance(time.Second)
	if _, err := r.c.Step(); err != nil {
		t.Errorf("Step: %v", err)
	}
	if err := r.c.Handle(EventCycleAlert); err != nil {
		t.Errorf("Handle: %v", err)
	}
	// Counted even though the broker rejected them.
	if c := r.tracker.Snapshot().Counts; c.Expired != 1 || c.AlertMode != 1 {
		t.Errorf("Counts: got %+v", c)
	}
}

func TestNilPublisherAndTracker(t *testing.T) {
	rec := gpio.NewRecorder()
	d, err := display.New(display.Lines{
		CLK: gpio.NewFakeOutput("CLK", rec),
		SDI: gpio.NewFakeOutput("SDI", rec),
		LE:  gpio.NewFakeOutput("LE", rec),
		OE:  gpio.NewFakeOutput("OE", rec),
	}, display.Options{})
	if err != nil {
		t.Fatalf("display.New: %v", err)
	}
	c := New(d, countdown.New(sixMinutes(), t0), gpio.NewFakeOutput("BUZZER", nil), nil, nil, Options{}, func() time.Time { return t0 })

	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	for _, ev := range []Event{EventToggleRunning, EventCycleAlert, EventReset, EventShutdown} {
		if err := c.Handle(ev); err != nil {
			t.Errorf("Handle(%v): %v", ev, err)
		}
	}
}

func TestConcurrentStepAndHandle(t *testing.T) {
	r := newRig(t, sixMinutes())
	if err := r.c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			r.clock.advance(time.Millisecond)
			if _, err := r.c.Step(); err != nil {
				t.Errorf("Step: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		evs := []Event{EventToggleRunning, EventCycleAlert, EventBuzzerOn, EventBuzzerOff, EventReset}
		for i := 0; i < 100; i++ {
			if err := r.c.Handle(evs[i%len(evs)]); err != nil {
				t.Errorf("Handle: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	snap := r.tracker.Snapshot()
	if len(snap.Display) != len(countdown.ExpiredText) {
		t.Errorf("Display: got %q", snap.Display)
	}
}
