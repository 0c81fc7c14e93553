package audio

import (
	"math"
	"sync"
	"time"

	"github.com/hajimehoshi/oto/v2"

	"tonguebeat/debug"
	"tonguebeat/scale"
)

// Engine mixes triggered voices into a single stereo float32 stream.
// It is the scheduler's primary sink and feeds oto through io.Reader:
// the device pulls, the engine renders whatever voices are live at
// that instant. Triggers are cheap — they only append to the voice
// list; all synthesis happened at load time.
type Engine struct {
	lib      *Library
	poolSize int
	master   float64

	mu      sync.Mutex
	voices  []*voice
	nextAge uint64
	closed  bool

	ctx    *oto.Context
	ready  chan struct{}
	player oto.Player
}

// NewEngine creates an engine over the library. poolSize bounds the
// simultaneous voices per instrument; master scales the final mix.
func NewEngine(lib *Library, poolSize int, master float64) *Engine {
	if poolSize < 1 {
		poolSize = 1
	}
	if master <= 0 || master > 1 {
		master = 0.8
	}
	return &Engine{lib: lib, poolSize: poolSize, master: master}
}

// Start opens the audio device and begins streaming. Everything before
// Start (and everything in tests) runs headless through Read.
func (e *Engine) Start() error {
	ctx, ready, err := oto.NewContext(SampleRate, ChannelCount, BitDepth)
	if err != nil {
		return err
	}
	e.ctx = ctx
	e.ready = ready
	go func() {
		<-ready
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return
		}
		e.player = ctx.NewPlayer(e)
		player := e.player
		e.mu.Unlock()
		player.Play()
		debug.Log("audio", "device ready, streaming")
	}()
	return nil
}

// Trigger starts a drum voice. Implements the scheduler sink.
func (e *Engine) Trigger(instrument string, velocity float64) {
	samples := e.lib.Samples(instrument)
	if samples == nil || velocity <= 0 {
		return
	}
	if velocity > 1 {
		velocity = 1
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	// Hi-hat is a choke group: a new hit silences the ringing one, the
	// way a real closed hat cuts the open one.
	if instrument == "hihat" {
		e.chokeLocked(func(v *voice) bool { return v.inst == instrument })
	}
	e.addLocked(&voice{
		samples: samples,
		gain:    velocity,
		inst:    instrument,
	})
}

// TriggerNote starts an arpeggiator voice. The arp is monophonic: each
// note chokes the previous one.
func (e *Engine) TriggerNote(note scale.Note, volume float64) {
	if volume <= 0 {
		return
	}
	if volume > 1 {
		volume = 1
	}
	tone := e.lib.Tone(note.Frequency)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.chokeLocked(func(v *voice) bool { return v.melodic })
	e.addLocked(&voice{
		samples: tone,
		gain:    volume,
		inst:    "arp",
		melodic: true,
	})
}

// chokeLocked fast-fades every live voice matching the predicate.
func (e *Engine) chokeLocked(match func(*voice) bool) {
	for _, v := range e.voices {
		if match(v) {
			v.choke()
		}
	}
}

// addLocked appends a voice, evicting the oldest same-instrument voice
// when the per-instrument pool is full.
func (e *Engine) addLocked(nv *voice) {
	count := 0
	var oldest *voice
	for _, v := range e.voices {
		if v.inst != nv.inst || v.fading {
			continue
		}
		count++
		if oldest == nil || v.age < oldest.age {
			oldest = v
		}
	}
	if count >= e.poolSize && oldest != nil {
		oldest.choke()
	}
	nv.age = e.nextAge
	e.nextAge++
	e.voices = append(e.voices, nv)
}

// ActiveVoices reports the number of live voices.
func (e *Engine) ActiveVoices() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.voices)
}

// Read renders the next chunk of the stream: stereo float32 LE, 8 bytes
// per frame. Never returns EOF while open — silence is a valid mix.
func (e *Engine) Read(p []byte) (int, error) {
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}

	e.mu.Lock()
	for i := 0; i < frames; i++ {
		mix := 0.0
		for _, v := range e.voices {
			mix += v.next()
		}
		putStereoF32(p, i, softSat(mix*e.master))
	}
	// Compact finished voices in place.
	live := e.voices[:0]
	for _, v := range e.voices {
		if !v.done() {
			live = append(live, v)
		}
	}
	for i := len(live); i < len(e.voices); i++ {
		e.voices[i] = nil
	}
	e.voices = live
	e.mu.Unlock()

	return frames * 8, nil
}

// Close fades all voices and releases the device. Safe to call without
// Start and safe to call twice.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for _, v := range e.voices {
		v.choke()
	}
	player := e.player
	e.mu.Unlock()

	if player != nil {
		// Let the fade drain through the device before tearing it down.
		time.Sleep(30 * time.Millisecond)
		player.Close()
	}
	debug.Log("audio", "engine closed")
}

// putStereoF32 writes a [-1,1] sample as float32 LE to both stereo
// channels at frame i.
func putStereoF32(buf []byte, i int, sample float64) {
	v := math.Float32bits(float32(sample))
	buf[i*8] = byte(v)
	buf[i*8+1] = byte(v >> 8)
	buf[i*8+2] = byte(v >> 16)
	buf[i*8+3] = byte(v >> 24)
	buf[i*8+4] = byte(v)
	buf[i*8+5] = byte(v >> 8)
	buf[i*8+6] = byte(v >> 16)
	buf[i*8+7] = byte(v >> 24)
}
