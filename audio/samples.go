package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"tonguebeat/debug"
)

// Library holds decoded per-instrument sample data plus the precomputed
// arpeggiator tones. Instruments load from <assetsDir>/<name>.wav when
// present; the builtin synth recipes are the baseline, so a missing or
// corrupt file falls back rather than silencing the lane. An instrument
// with neither a file nor a recipe is disabled.
type Library struct {
	samples map[string][]float64
	enabled map[string]bool
	fromWAV int

	mu    sync.Mutex
	tones map[float64][]float64
}

// LoadLibrary builds the library for the named instruments. It never
// fails outright: load problems degrade individual instruments.
func LoadLibrary(assetsDir string, instruments []string) *Library {
	lib := &Library{
		samples: make(map[string][]float64, len(instruments)),
		enabled: make(map[string]bool, len(instruments)),
		tones:   make(map[float64][]float64),
	}
	for _, inst := range instruments {
		if assetsDir != "" {
			path := filepath.Join(assetsDir, inst+".wav")
			if samples, err := decodeWAV(path); err == nil {
				lib.samples[inst] = samples
				lib.enabled[inst] = true
				lib.fromWAV++
				continue
			} else if !os.IsNotExist(err) {
				debug.Log("audio", "%s: %v, using builtin", inst, err)
			}
		}
		if samples := SynthDrum(inst); samples != nil {
			lib.samples[inst] = samples
			lib.enabled[inst] = true
			continue
		}
		debug.Log("audio", "no asset or recipe for %q, disabled", inst)
		lib.enabled[inst] = false
	}
	debug.Log("audio", "library: %d instruments, %d from wav", len(lib.samples), lib.fromWAV)
	return lib
}

// Samples returns the mono sample data for an instrument, or nil if it
// is disabled.
func (l *Library) Samples(inst string) []float64 { return l.samples[inst] }

// Enabled returns the per-instrument availability map for the scheduler.
func (l *Library) Enabled() map[string]bool {
	out := make(map[string]bool, len(l.enabled))
	for inst, ok := range l.enabled {
		out[inst] = ok
	}
	return out
}

// LoadedFromWAV reports how many instruments came from disk assets.
func (l *Library) LoadedFromWAV() int { return l.fromWAV }

// PrecomputeTones renders the arpeggiator tone for each frequency up
// front so note triggers never synthesize on the audio path.
func (l *Library) PrecomputeTones(freqs []float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range freqs {
		if _, ok := l.tones[f]; !ok {
			l.tones[f] = SynthTone(f)
		}
	}
}

// Tone returns the rendered tone for freq, synthesizing and caching on
// first use for pitches outside the precomputed set.
func (l *Library) Tone(freq float64) []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	tone, ok := l.tones[freq]
	if !ok {
		tone = SynthTone(freq)
		l.tones[freq] = tone
	}
	return tone
}

// decodeWAV reads a WAV file into mono float64 samples at SampleRate.
// Multi-channel files are averaged down; off-rate files are linearly
// resampled.
func decodeWAV(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid wav file", path)
	}

	duration, err := decoder.Duration()
	if err != nil {
		return nil, fmt.Errorf("%s: reading duration: %w", path, err)
	}
	totalFrames := int(duration.Seconds() * float64(decoder.SampleRate))
	if totalFrames == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	chans := int(decoder.NumChans)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: chans,
			SampleRate:  int(decoder.SampleRate),
		},
		Data:           make([]int, totalFrames*chans),
		SourceBitDepth: int(decoder.BitDepth),
	}
	if _, err := decoder.PCMBuffer(buf); err != nil {
		return nil, fmt.Errorf("%s: reading samples: %w", path, err)
	}

	maxVal := float64(int(1) << (uint(decoder.BitDepth) - 1))
	mono := make([]float64, totalFrames)
	for i := 0; i < totalFrames; i++ {
		sum := 0.0
		for c := 0; c < chans; c++ {
			sum += float64(buf.Data[i*chans+c]) / maxVal
		}
		mono[i] = sum / float64(chans)
	}

	if int(decoder.SampleRate) != SampleRate {
		mono = resample(mono, int(decoder.SampleRate), SampleRate)
	}
	return mono, nil
}

// resample converts mono samples between rates by linear interpolation.
// Fine for one-shot drum hits; not meant for program material.
func resample(in []float64, from, to int) []float64 {
	if from == to || len(in) == 0 {
		return in
	}
	ratio := float64(from) / float64(to)
	n := int(float64(len(in)) / ratio)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = in[j]*(1-frac) + in[j+1]*frac
	}
	return out
}
