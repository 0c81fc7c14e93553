package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"tonguebeat/scale"
)

func testLibrary(t *testing.T) *Library {
	t.Helper()
	lib := LoadLibrary("", []string{"kick", "snare", "hihat", "tom", "crash"})
	for _, inst := range []string{"kick", "snare", "hihat"} {
		if lib.Samples(inst) == nil {
			t.Fatalf("builtin %s missing", inst)
		}
	}
	return lib
}

// readFrames pulls n stereo frames from the engine and decodes the left
// channel back to float64.
func readFrames(t *testing.T, e *Engine, n int) []float64 {
	t.Helper()
	buf := make([]byte, n*8)
	got, err := e.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != len(buf) {
		t.Fatalf("Read returned %d bytes, want %d", got, len(buf))
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(buf[i*8:])
		out[i] = float64(math.Float32frombits(bits))
	}
	return out
}

func peak(samples []float64) float64 {
	p := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > p {
			p = a
		}
	}
	return p
}

func TestSilenceWithoutVoices(t *testing.T) {
	e := NewEngine(testLibrary(t), 4, 0.8)
	if p := peak(readFrames(t, e, 256)); p != 0 {
		t.Errorf("idle engine produced peak %v, want silence", p)
	}
}

func TestTriggerProducesAudio(t *testing.T) {
	e := NewEngine(testLibrary(t), 4, 0.8)
	e.Trigger("kick", 1.0)
	if p := peak(readFrames(t, e, 1024)); p == 0 {
		t.Error("triggered kick produced silence")
	}
}

func TestVelocityScalesOutput(t *testing.T) {
	lib := testLibrary(t)

	loud := NewEngine(lib, 4, 0.8)
	loud.Trigger("snare", 1.0)
	loudPeak := peak(readFrames(t, loud, 2048))

	quiet := NewEngine(lib, 4, 0.8)
	quiet.Trigger("snare", 0.2)
	quietPeak := peak(readFrames(t, quiet, 2048))

	if quietPeak >= loudPeak {
		t.Errorf("velocity 0.2 peak %v not below velocity 1.0 peak %v", quietPeak, loudPeak)
	}
}

func TestZeroVelocityIgnored(t *testing.T) {
	e := NewEngine(testLibrary(t), 4, 0.8)
	e.Trigger("kick", 0)
	e.Trigger("kick", -1)
	if e.ActiveVoices() != 0 {
		t.Errorf("zero-velocity triggers allocated %d voices", e.ActiveVoices())
	}
}

func TestUnknownInstrumentIgnored(t *testing.T) {
	e := NewEngine(testLibrary(t), 4, 0.8)
	e.Trigger("vibraslap", 1.0)
	if e.ActiveVoices() != 0 {
		t.Error("unknown instrument allocated a voice")
	}
}

func TestHihatChokes(t *testing.T) {
	e := NewEngine(testLibrary(t), 4, 0.8)
	e.Trigger("hihat", 1.0)
	readFrames(t, e, 256)

	e.Trigger("hihat", 1.0)
	if e.ActiveVoices() != 2 {
		t.Fatalf("expected old and new hihat live during the fade, got %d", e.ActiveVoices())
	}

	// The choked voice must be gone once the fast fade has elapsed.
	readFrames(t, e, fadeSamples*2)
	if e.ActiveVoices() != 1 {
		t.Errorf("choked hihat still live after fade: %d voices", e.ActiveVoices())
	}
}

func TestKicksStack(t *testing.T) {
	// Unlike the hihat, kicks are not a choke group.
	e := NewEngine(testLibrary(t), 4, 0.8)
	e.Trigger("kick", 1.0)
	readFrames(t, e, 256)
	e.Trigger("kick", 1.0)
	readFrames(t, e, fadeSamples*2)
	if e.ActiveVoices() != 2 {
		t.Errorf("overlapping kicks should both ring, got %d voices", e.ActiveVoices())
	}
}

func TestVoicePoolEvictsOldest(t *testing.T) {
	e := NewEngine(testLibrary(t), 2, 0.8)
	for i := 0; i < 5; i++ {
		e.Trigger("kick", 1.0)
	}
	// Evicted voices fade; after the fade only the pool survives.
	readFrames(t, e, fadeSamples*2)
	if got := e.ActiveVoices(); got != 2 {
		t.Errorf("pool of 2 left %d voices after eviction fades", got)
	}
}

func TestArpMonophonic(t *testing.T) {
	lib := testLibrary(t)
	lib.PrecomputeTones([]float64{130.81, 196.00})
	e := NewEngine(lib, 4, 0.8)

	e.TriggerNote(scale.Note{Frequency: 130.81}, 0.8)
	readFrames(t, e, 256)
	e.TriggerNote(scale.Note{Frequency: 196.00}, 0.8)
	readFrames(t, e, fadeSamples*2)

	if got := e.ActiveVoices(); got != 1 {
		t.Errorf("arp should be monophonic after the choke fade, got %d voices", got)
	}
}

func TestMixStaysBounded(t *testing.T) {
	e := NewEngine(testLibrary(t), 8, 1.0)
	for _, inst := range []string{"kick", "snare", "hihat", "tom", "crash"} {
		e.Trigger(inst, 1.0)
		e.Trigger(inst, 1.0)
	}
	samples := readFrames(t, e, 4096)
	for i, s := range samples {
		if math.Abs(s) > 1.0 {
			t.Fatalf("sample %d out of range: %v", i, s)
		}
	}
}

func TestCloseSilencesEngine(t *testing.T) {
	e := NewEngine(testLibrary(t), 4, 0.8)
	e.Trigger("crash", 1.0)
	readFrames(t, e, 256)

	e.Close()
	e.Trigger("kick", 1.0) // ignored after close
	readFrames(t, e, fadeSamples*2)

	if p := peak(readFrames(t, e, 512)); p != 0 {
		t.Errorf("closed engine still audible: peak %v", p)
	}
	e.Close() // second close must be safe
}

func TestVoicesFreedWhenFinished(t *testing.T) {
	e := NewEngine(testLibrary(t), 4, 0.8)
	e.Trigger("hihat", 1.0) // 0.08s, shortest builtin
	readFrames(t, e, SampleRate/2)
	if e.ActiveVoices() != 0 {
		t.Errorf("finished voice not reclaimed: %d live", e.ActiveVoices())
	}
}
