package scale

import (
	"math"
	"testing"
)

func TestMapperBins(t *testing.T) {
	m := NewMapper(Get("c-minor-pentatonic"), 2)
	if m.Bins() != 10 {
		t.Fatalf("expected 5 degrees x 2 octaves = 10 bins, got %d", m.Bins())
	}
}

func TestMapHeightEndpoints(t *testing.T) {
	m := NewMapper(Get("c-minor-pentatonic"), 2)

	low := m.MapHeight(0)
	if low.Degree != 0 || low.Octave != 0 {
		t.Errorf("height 0 should map to lowest note, got degree %d octave %d", low.Degree, low.Octave)
	}
	if math.Abs(low.Frequency-130.81) > 1e-9 {
		t.Errorf("lowest note frequency: got %f, want 130.81", low.Frequency)
	}

	high := m.MapHeight(1)
	if high.Degree != 4 || high.Octave != 1 {
		t.Errorf("height 1 should map to highest note, got degree %d octave %d", high.Degree, high.Octave)
	}
	if math.Abs(high.Frequency-233.08*2) > 1e-9 {
		t.Errorf("highest note frequency: got %f, want %f", high.Frequency, 233.08*2)
	}
}

func TestMapHeightMonotonic(t *testing.T) {
	m := NewMapper(Get("c-minor-pentatonic"), 3)
	prev := -1.0
	for h := 0.0; h <= 1.0; h += 0.01 {
		n := m.MapHeight(h)
		if n.Frequency < prev {
			t.Fatalf("frequency decreased at height %f: %f < %f", h, n.Frequency, prev)
		}
		prev = n.Frequency
	}
}

func TestMapHeightClampsOutOfRange(t *testing.T) {
	m := NewMapper(Get("c-minor-pentatonic"), 2)
	if got := m.MapHeight(-0.5); got != m.MapHeight(0) {
		t.Errorf("negative height should clamp to lowest note, got %+v", got)
	}
	if got := m.MapHeight(2.0); got != m.MapHeight(1) {
		t.Errorf("height above 1 should clamp to highest note, got %+v", got)
	}
}

func TestMapHeightDeterministic(t *testing.T) {
	m := NewMapper(Get("c-minor-pentatonic"), 3)
	for _, h := range []float64{0, 0.25, 0.5, 0.99, 1} {
		a, b := m.MapHeight(h), m.MapHeight(h)
		if a != b {
			t.Errorf("height %f mapped to %+v then %+v", h, a, b)
		}
	}
}

func TestNoteAtOctaveDoubling(t *testing.T) {
	m := NewMapper(Get("c-minor-pentatonic"), 3)
	base := m.NoteAt(0)
	up := m.NoteAt(5) // same degree, one octave up
	if math.Abs(up.Frequency-base.Frequency*2) > 1e-9 {
		t.Errorf("octave should double frequency: %f vs %f", up.Frequency, base.Frequency)
	}
}

func TestNoteAtClamps(t *testing.T) {
	m := NewMapper(Get("c-minor-pentatonic"), 2)
	if m.NoteAt(-3) != m.NoteAt(0) {
		t.Error("negative index should clamp to lowest note")
	}
	if m.NoteAt(99) != m.NoteAt(m.Bins()-1) {
		t.Error("overflow index should clamp to highest note")
	}
}

func TestNoteIndexRoundTrip(t *testing.T) {
	m := NewMapper(Get("c-minor-pentatonic"), 3)
	for i := 0; i < m.Bins(); i++ {
		n := m.NoteAt(i)
		if n.Index(m.DegreeCount()) != i {
			t.Errorf("index %d round-tripped to %d", i, n.Index(m.DegreeCount()))
		}
	}
}

func TestGetUnknownScaleFallsBack(t *testing.T) {
	s := Get("no-such-scale")
	if s.Name != Scales[DefaultScale].Name {
		t.Errorf("unknown scale should fall back to default, got %q", s.Name)
	}
}
