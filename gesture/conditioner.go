package gesture

import (
	"math"
	"sync/atomic"
	"time"

	"tonguebeat/debug"
)

// LockState is the pinch-to-BPM gesture state machine.
type LockState int

const (
	Locked LockState = iota
	Armed
	Unlocked
)

func (s LockState) String() string {
	switch s {
	case Armed:
		return "ARMED"
	case Unlocked:
		return "UNLOCKED"
	default:
		return "LOCKED"
	}
}

// Volume bounds for the pinch→volume mapping. A tighter pinch is louder.
const (
	minVolume = 0.1
	maxVolume = 0.8
)

// Consecutive fist frames before a pattern-advance fires.
const fistDwellFrames = 5

// ControlState is the conditioned snapshot the scheduler reads each tick.
// It is immutable once published; the Conditioner swaps in a fresh copy
// per frame so readers never observe a partial update.
type ControlState struct {
	PitchHeight   float64 // [0,1], higher hand = higher value
	PinchDistance float64 // [0,1] smoothed thumb-index distance
	Volume        float64 // [minVolume,maxVolume] derived from pinch
	FingerMask    FingerMask
	Lock          LockState
	LeftPresent   bool
	RightPresent  bool
	UpdatedAt     time.Time
}

// BPMUnlocked reports whether vertical movement is currently steering tempo.
func (s *ControlState) BPMUnlocked() bool { return s.Lock == Unlocked }

// Params tunes the conditioner. Zero values are replaced by the listed
// defaults so a bare Params{} is usable in tests.
type Params struct {
	SmoothingAlpha        float64       // default 0.4
	PinchArmThreshold     float64       // default 0.05
	PinchReleaseThreshold float64       // default 0.10
	PinchArmFrames        int           // default 3
	ConfidenceThreshold   float64       // default 0.5
	HandLossTimeout       time.Duration // default 500ms
	BPMPerUnitHeight      float64       // default 80
}

func (p Params) withDefaults() Params {
	if p.SmoothingAlpha == 0 {
		p.SmoothingAlpha = 0.4
	}
	if p.PinchArmThreshold == 0 {
		p.PinchArmThreshold = 0.05
	}
	if p.PinchReleaseThreshold == 0 {
		p.PinchReleaseThreshold = 0.10
	}
	if p.PinchArmFrames == 0 {
		p.PinchArmFrames = 3
	}
	if p.ConfidenceThreshold == 0 {
		p.ConfidenceThreshold = 0.5
	}
	if p.HandLossTimeout == 0 {
		p.HandLossTimeout = 500 * time.Millisecond
	}
	if p.BPMPerUnitHeight == 0 {
		p.BPMPerUnitHeight = 80
	}
	return p
}

// Conditioner turns raw tracker frames into ControlState snapshots.
// Single writer: only the gesture loop calls Update. Readers use Latest.
type Conditioner struct {
	params Params

	state atomic.Pointer[ControlState]

	// smoothing state for the left (arpeggiator) hand
	height     float64
	pinch      float64
	leftSeeded bool

	// presence tracking
	lastLeft     time.Time
	lastRight    time.Time
	leftPresent  bool
	rightPresent bool

	// pinch-to-BPM state machine
	lock         LockState
	armCount     int
	anchorHeight float64

	fingerMask FingerMask

	// fist debounce for pattern advance
	fistFrames  int
	fistLatched bool

	onTempoDelta func(delta float64)
	onFist       func()
}

// NewConditioner creates a conditioner and publishes an initial empty state.
func NewConditioner(params Params) *Conditioner {
	c := &Conditioner{params: params.withDefaults()}
	c.state.Store(&ControlState{Volume: minVolume})
	return c
}

// OnTempoDelta registers the callback invoked with BPM deltas while the
// pinch gesture is UNLOCKED. Called from the gesture loop; the receiver
// must not block.
func (c *Conditioner) OnTempoDelta(fn func(delta float64)) { c.onTempoDelta = fn }

// OnFist registers the callback invoked once per sustained fist on the
// drum hand (used to queue the next pattern).
func (c *Conditioner) OnFist(fn func()) { c.onFist = fn }

// Latest returns the most recently published snapshot. Never nil.
func (c *Conditioner) Latest() *ControlState { return c.state.Load() }

// Lock returns the current pinch state machine state.
func (c *Conditioner) Lock() LockState { return c.lock }

// Update consumes one tracker frame and publishes a fresh snapshot.
func (c *Conditioner) Update(frame Frame) *ControlState {
	usable := frame.Present && frame.Confidence >= c.params.ConfidenceThreshold

	switch frame.Hand {
	case LeftHand:
		if usable {
			c.updateLeft(frame)
		} else {
			c.loseLeft(frame.T)
		}
	case RightHand:
		if usable {
			c.updateRight(frame)
		} else {
			c.loseRight(frame.T)
		}
	}

	return c.publish(frame.T)
}

// updateLeft handles the arpeggiator hand: height, pinch volume, and the
// pinch-to-BPM state machine.
func (c *Conditioner) updateLeft(frame Frame) {
	rawHeight := clamp01(1.0 - frame.Wrist.Y) // higher hand = higher value
	rawPinch := clamp01(frame.ThumbTip.Dist(frame.IndexTip))

	if !c.leftSeeded {
		// Unsmoothed on the first frame after re-acquisition.
		c.height = rawHeight
		c.pinch = rawPinch
		c.leftSeeded = true
	} else {
		a := c.params.SmoothingAlpha
		c.height = a*rawHeight + (1-a)*c.height
		c.pinch = a*rawPinch + (1-a)*c.pinch
	}

	c.stepLockMachine()

	c.lastLeft = frame.T
	c.leftPresent = true
}

// stepLockMachine advances LOCKED→ARMED→UNLOCKED with hysteresis: arming
// needs the pinch below the tight arm threshold for consecutive frames,
// release needs it past the wider release threshold.
func (c *Conditioner) stepLockMachine() {
	arm := c.params.PinchArmThreshold
	release := c.params.PinchReleaseThreshold

	switch c.lock {
	case Locked:
		if c.pinch < arm {
			c.armCount++
		} else {
			c.armCount = 0
		}
		if c.armCount >= 2 {
			c.lock = Armed
			debug.Log("gesture", "pinch armed")
		}
	case Armed:
		if c.pinch > release {
			c.resetLock()
		} else if c.pinch < arm {
			c.armCount++
			if c.armCount > c.params.PinchArmFrames {
				c.lock = Unlocked
				c.anchorHeight = c.height
				debug.Log("gesture", "bpm unlocked at height %.3f", c.height)
			}
		}
	case Unlocked:
		if c.pinch > release {
			c.resetLock()
			debug.Log("gesture", "bpm locked")
		} else if c.onTempoDelta != nil {
			if delta := (c.height - c.anchorHeight) * c.params.BPMPerUnitHeight; delta != 0 {
				c.onTempoDelta(delta)
				c.anchorHeight = c.height
			}
		}
	}
}

func (c *Conditioner) resetLock() {
	c.lock = Locked
	c.armCount = 0
}

// updateRight handles the drum hand: finger mask and fist debounce.
func (c *Conditioner) updateRight(frame Frame) {
	c.fingerMask = frame.RaisedMask()
	c.lastRight = frame.T
	c.rightPresent = true

	if c.fingerMask.Count() <= 1 { // fist: at most the thumb showing
		c.fistFrames++
		if c.fistFrames >= fistDwellFrames && !c.fistLatched {
			c.fistLatched = true
			if c.onFist != nil {
				c.onFist()
			}
		}
	} else {
		c.fistFrames = 0
		c.fistLatched = false
	}
}

// loseLeft is called for absent or low-confidence left-hand frames. The
// snapshot holds its last valid pitch/volume; a brief blip keeps the EMA
// history. Past the timeout the hand counts as lost: the lock machine
// resets and the next good frame re-seeds unsmoothed.
func (c *Conditioner) loseLeft(now time.Time) {
	if c.leftPresent && !c.lastLeft.IsZero() && now.Sub(c.lastLeft) > c.params.HandLossTimeout {
		c.leftPresent = false
		c.leftSeeded = false
		c.resetLock()
		debug.Log("gesture", "left hand lost, lock reset")
	}
}

// loseRight clears the finger mask (muting all lanes) once the drum hand
// has been gone past the timeout. Pitch and volume are unaffected.
func (c *Conditioner) loseRight(now time.Time) {
	if c.rightPresent && !c.lastRight.IsZero() && now.Sub(c.lastRight) > c.params.HandLossTimeout {
		c.rightPresent = false
		c.fingerMask = 0
		c.fistFrames = 0
		c.fistLatched = false
		debug.Log("gesture", "right hand lost, lanes muted")
	}
}

func (c *Conditioner) publish(now time.Time) *ControlState {
	s := &ControlState{
		PitchHeight:   c.height,
		PinchDistance: c.pinch,
		Volume:        pinchVolume(c.pinch),
		FingerMask:    c.fingerMask,
		Lock:          c.lock,
		LeftPresent:   c.leftPresent,
		RightPresent:  c.rightPresent,
		UpdatedAt:     now,
	}
	c.state.Store(s)
	debug.LogEvery(120, "gesture", "height=%.3f pinch=%.3f mask=%05b lock=%s",
		s.PitchHeight, s.PinchDistance, s.FingerMask, s.Lock)
	return s
}

// pinchVolume maps pinch distance to volume: closer fingers are louder.
// Monotonic clamp into [minVolume, maxVolume].
func pinchVolume(pinch float64) float64 {
	return math.Min(maxVolume, math.Max(minVolume, 1.0-pinch*5))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
