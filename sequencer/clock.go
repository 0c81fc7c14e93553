package sequencer

import (
	"math"
	"sync/atomic"
	"time"
)

// StepsPerPattern is the fixed pattern length: one bar of 16th notes.
const StepsPerPattern = 16

// Clock owns tempo and the 16-step grid position. BPM is stored atomically
// because the gesture loop adjusts it while the scheduler loop reads it.
// step and deadline carry no locking of their own: the Manager serializes
// every access to them, readers and writer alike, under its state lock.
type Clock struct {
	bpmBits atomic.Uint64
	minBPM  float64
	maxBPM  float64

	step     int
	deadline time.Time // unswung grid time of the next step
}

// NewClock creates a clock clamped to [minBPM, maxBPM].
func NewClock(bpm, minBPM, maxBPM float64) *Clock {
	c := &Clock{minBPM: minBPM, maxBPM: maxBPM}
	c.SetBPM(bpm)
	return c
}

// BPM returns the current tempo.
func (c *Clock) BPM() float64 {
	return math.Float64frombits(c.bpmBits.Load())
}

// SetBPM sets the tempo, clamping to the configured range. Out-of-range
// requests are never an error — live control must not fail mid-performance.
func (c *Clock) SetBPM(bpm float64) {
	if bpm < c.minBPM {
		bpm = c.minBPM
	}
	if bpm > c.maxBPM {
		bpm = c.maxBPM
	}
	c.bpmBits.Store(math.Float64bits(bpm))
}

// AdjustBPM applies a relative tempo change, clamped like SetBPM.
func (c *Clock) AdjustBPM(delta float64) {
	c.SetBPM(c.BPM() + delta)
}

// StepDuration returns the duration of one 16th-note step at the current
// tempo: 60e9/bpm/4 nanoseconds.
func (c *Clock) StepDuration() time.Duration {
	return time.Duration(60e9 / c.BPM() / 4)
}

// Step returns the current step index.
func (c *Clock) Step() int { return c.step }

// Reset re-anchors the grid at now and rewinds to step 0. Called at engine
// start and on explicit pattern restart, never mid-performance.
func (c *Clock) Reset(now time.Time) {
	c.step = 0
	c.deadline = now
}

// Rebase moves the grid anchor to now without touching the step index.
// Used when the scheduler falls far behind real time.
func (c *Clock) Rebase(now time.Time) {
	c.deadline = now
}

// FireAt returns when the current step should trigger: the grid deadline,
// plus the swing offset on odd steps. The step duration is frozen here so
// a tempo change mid-step cannot smear the current tick; it takes effect
// at the following step boundary.
func (c *Clock) FireAt(swing float64) (fireAt time.Time, stepDur time.Duration) {
	stepDur = c.StepDuration()
	fireAt = c.deadline
	if c.step%2 == 1 && swing > 0 {
		fireAt = fireAt.Add(time.Duration(swing * float64(stepDur)))
	}
	return fireAt, stepDur
}

// Advance moves to the next step using the duration frozen at tick start.
func (c *Clock) Advance(stepDur time.Duration) {
	c.step = (c.step + 1) % StepsPerPattern
	c.deadline = c.deadline.Add(stepDur)
}
