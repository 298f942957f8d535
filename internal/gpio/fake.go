package gpio

import "sync"

// Write is a single recorded Set call on a FakeOutput.
type Write struct {
	Line  string
	Value bool
}

// Recorder collects writes from several FakeOutputs in call order, so tests
// can check the interleaving between lines.
type Recorder struct {
	mu     sync.Mutex
	writes []Write
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(w Write) {
	r.mu.Lock()
	r.writes = append(r.writes, w)
	r.mu.Unlock()
}

// Writes returns a copy of all recorded writes.
func (r *Recorder) Writes() []Write {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Write, len(r.writes))
	copy(out, r.writes)
	return out
}

// Reset discards all recorded writes.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.writes = nil
	r.mu.Unlock()
}

// FakeOutput is a test double that records every Set call.
type FakeOutput struct {
	// Name labels writes in the shared Recorder.
	Name string

	// SetError, if set, will be returned by Set (the level is not changed).
	SetError error

	mu    sync.Mutex
	rec   *Recorder
	value bool
	sets  int
}

// NewFakeOutput creates a FakeOutput. rec may be nil.
func NewFakeOutput(name string, rec *Recorder) *FakeOutput {
	return &FakeOutput{Name: name, rec: rec}
}

// Set records the write and updates the level.
func (f *FakeOutput) Set(on bool) error {
	f.mu.Lock()
	if f.SetError != nil {
		err := f.SetError
		f.mu.Unlock()
		return err
	}
	f.value = on
	f.sets++
	f.mu.Unlock()

	if f.rec != nil {
		f.rec.record(Write{Line: f.Name, Value: on})
	}
	return nil
}

// Value returns the current level.
func (f *FakeOutput) Value() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Sets returns how many successful Set calls were made.
func (f *FakeOutput) Sets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

// FakeButtons delivers scripted button edges to a Handler.
type FakeButtons struct {
	handler Handler

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeButtons creates a FakeButtons that calls h.
func NewFakeButtons(h Handler) *FakeButtons {
	return &FakeButtons{handler: h}
}

// Press delivers a press edge for b.
func (f *FakeButtons) Press(b Button) {
	f.handler(b, true)
}

// Release delivers a release edge for b.
func (f *FakeButtons) Release(b Button) {
	f.handler(b, false)
}

// Click delivers a press followed by a release.
func (f *FakeButtons) Click(b Button) {
	f.Press(b)
	f.Release(b)
}

// Close marks the source as closed.
func (f *FakeButtons) Close() error {
	f.Closed = true
	return nil
}
