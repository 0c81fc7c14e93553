package gesture

import (
	"fmt"
	"math"
	"time"
)

// Hand identifies which hand a frame describes. The left hand drives the
// arpeggiator (height and pinch), the right hand drives the drum lanes.
type Hand string

const (
	LeftHand  Hand = "Left"
	RightHand Hand = "Right"
)

// Finger indexes into per-finger arrays, thumb first.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
	NumFingers
)

var fingerNames = [NumFingers]string{"thumb", "index", "middle", "ring", "pinky"}

func (f Finger) String() string {
	if f < 0 || f >= NumFingers {
		return "unknown"
	}
	return fingerNames[f]
}

// FingerByName resolves a config key like "ring" to a Finger.
func FingerByName(name string) (Finger, bool) {
	for i, n := range fingerNames {
		if n == name {
			return Finger(i), true
		}
	}
	return 0, false
}

// FingerMask is a bitset of raised fingers.
type FingerMask uint8

func (m FingerMask) Has(f Finger) bool { return m&(1<<uint(f)) != 0 }

func (m *FingerMask) Set(f Finger) { *m |= 1 << uint(f) }

// Count returns how many fingers are raised.
func (m FingerMask) Count() int {
	n := 0
	for f := Thumb; f < NumFingers; f++ {
		if m.Has(f) {
			n++
		}
	}
	return n
}

// Point is a normalized 2-D landmark position, origin top-left as the
// tracker delivers it (y grows downward).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance to q.
func (p Point) Dist(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Frame is one tracker observation of a single hand. Produced once per
// camera frame by the external tracker, consumed and discarded by the
// Conditioner. A frame with Present=false reports a tracking gap.
type Frame struct {
	T          time.Time        `json:"t"`
	Hand       Hand             `json:"hand"`
	Present    bool             `json:"present"`
	Confidence float64          `json:"confidence"`
	Wrist      Point            `json:"wrist"`
	ThumbTip   Point            `json:"thumbTip"`
	IndexTip   Point            `json:"indexTip"`
	Raised     [NumFingers]bool `json:"raised"`
}

// Validate rejects frames the conditioner cannot interpret.
func (f *Frame) Validate() error {
	if f.Hand != LeftHand && f.Hand != RightHand {
		return fmt.Errorf("hand must be %q or %q, got %q", LeftHand, RightHand, f.Hand)
	}
	if f.Confidence < 0 || f.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1, got %f", f.Confidence)
	}
	return nil
}

// RaisedMask converts the per-finger booleans to a mask.
func (f *Frame) RaisedMask() FingerMask {
	var m FingerMask
	for i := Thumb; i < NumFingers; i++ {
		if f.Raised[i] {
			m.Set(i)
		}
	}
	return m
}

// ClassifyFingers is the pure geometric classifier for trackers that hand
// over raw landmarks instead of per-finger booleans: a finger is raised
// when its tip's displacement from its base, projected along the hand's
// local up-axis, exceeds threshold.
func ClassifyFingers(tips, bases [NumFingers]Point, up Point, threshold float64) FingerMask {
	norm := math.Sqrt(up.X*up.X + up.Y*up.Y)
	if norm == 0 {
		return 0
	}
	ux, uy := up.X/norm, up.Y/norm
	var m FingerMask
	for f := Thumb; f < NumFingers; f++ {
		dx := tips[f].X - bases[f].X
		dy := tips[f].Y - bases[f].Y
		if dx*ux+dy*uy > threshold {
			m.Set(f)
		}
	}
	return m
}
