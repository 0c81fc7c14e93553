package audio

import (
	"math"
	"testing"
)

func TestSynthDrumRecipes(t *testing.T) {
	tests := []struct {
		inst    string
		seconds float64
	}{
		{"kick", 0.30},
		{"snare", 0.15},
		{"hihat", 0.08},
		{"clap", 0.10},
		{"tom", 0.25},
		{"crash", 0.90},
	}
	for _, tt := range tests {
		samples := SynthDrum(tt.inst)
		if samples == nil {
			t.Fatalf("%s: no recipe", tt.inst)
		}
		if want := int(tt.seconds * SampleRate); len(samples) != want {
			t.Errorf("%s: %d samples, want %d", tt.inst, len(samples), want)
		}
		for i, s := range samples {
			if math.Abs(s) > 1.0 {
				t.Errorf("%s: sample %d out of range: %v", tt.inst, i, s)
				break
			}
		}
		if peak(samples) == 0 {
			t.Errorf("%s: silent recipe", tt.inst)
		}
	}
}

func TestSynthDrumUnknown(t *testing.T) {
	if SynthDrum("bagpipes") != nil {
		t.Error("unknown instrument should have no recipe")
	}
}

func TestSynthToneDeterministic(t *testing.T) {
	a := SynthTone(196.0)
	b := SynthTone(196.0)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestSynthToneEnvelopeCloses(t *testing.T) {
	tone := SynthTone(130.81)
	if math.Abs(tone[len(tone)-1]) > 0.02 {
		t.Errorf("tone should end near silence, last sample %v", tone[len(tone)-1])
	}
	if peak(tone) == 0 {
		t.Error("tone is silent")
	}
}

func TestSoftSatBounds(t *testing.T) {
	for _, x := range []float64{-100, -2, -1, -0.5, 0, 0.5, 1, 2, 100} {
		if y := softSat(x); math.Abs(y) > 1.0 {
			t.Errorf("softSat(%v) = %v escapes [-1, 1]", x, y)
		}
	}
	if softSat(0.2) != 0.2-0.2*0.2*0.2/3 {
		t.Error("small signals should pass nearly linearly")
	}
}

func TestResample(t *testing.T) {
	in := make([]float64, 100)
	for i := range in {
		in[i] = float64(i)
	}
	out := resample(in, 22050, 44100)
	if len(out) != 200 {
		t.Fatalf("upsampled length %d, want 200", len(out))
	}
	// Linear interpolation preserves a ramp.
	if math.Abs(out[100]-50.0) > 1.0 {
		t.Errorf("midpoint %v, want ~50", out[100])
	}
	same := resample(in, 44100, 44100)
	if len(same) != len(in) {
		t.Error("same-rate resample should be a no-op")
	}
}
