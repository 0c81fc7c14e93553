// Package audio renders triggered drum and note events into a stereo
// float32 stream for oto.
package audio

import "math"

const (
	// SampleRate is the engine's fixed render rate.
	SampleRate = 44100
	// ChannelCount and BitDepth match oto.NewContext: stereo float32 LE.
	ChannelCount = 2
	BitDepth     = 0 // oto.FormatFloat32LE
)

// softSat applies gentle tanh-like saturation so stacked voices never
// hard-clip.
func softSat(x float64) float64 {
	if x > 1.0 {
		return 1.0 - 0.5/x
	}
	if x < -1.0 {
		return -1.0 + 0.5/(-x)
	}
	return x - x*x*x/3.0
}

// adsr returns an envelope at normalized progress [0,1].
// attack/decay/release are fractions of the total duration.
func adsr(progress, attack, decay, sustain, release float64) float64 {
	switch {
	case progress < attack:
		return progress / attack
	case progress < attack+decay:
		return 1.0 - (progress-attack)/decay*(1.0-sustain)
	case progress < 1.0-release:
		return sustain
	default:
		return sustain * (1.0 - (progress-(1.0-release))/release)
	}
}

// lcg advances an LCG seed and returns a noise sample in [-1,1].
func lcg(seed *uint64) float64 {
	*seed = *seed*6364136223846793005 + 1442695040888963407
	return float64(int64(*seed>>33)-int64(1<<30)) / float64(1<<30)
}

// SynthDrum renders the builtin recipe for an instrument, or nil for an
// unknown name. Recipes are mono at SampleRate; the mixer duplicates to
// stereo.
func SynthDrum(instrument string) []float64 {
	switch instrument {
	case "kick":
		return genKick()
	case "snare":
		return genSnare()
	case "hihat":
		return genHihat()
	case "clap":
		return genClap()
	case "tom":
		return genTom()
	case "crash":
		return genCrash()
	}
	return nil
}

// genKick: pitch-swept sine, 60 Hz sliding down, low punchy body.
func genKick() []float64 {
	n := int(0.30 * SampleRate)
	out := make([]float64, n)
	phase := 0.0
	for i := 0; i < n; i++ {
		t := float64(i) / SampleRate
		freq := 60 * math.Exp(-10*t)
		phase += 2 * math.Pi * freq / SampleRate
		out[i] = softSat(math.Sin(phase) * math.Exp(-8*t) * 0.8)
	}
	return out
}

// genSnare: noise body over a 200 Hz tone.
func genSnare() []float64 {
	n := int(0.15 * SampleRate)
	out := make([]float64, n)
	seed := uint64(22222)
	for i := 0; i < n; i++ {
		t := float64(i) / SampleRate
		s := 0.7*lcg(&seed) + 0.3*math.Sin(2*math.Pi*200*t)
		out[i] = softSat(s * math.Exp(-20*t) * 0.6)
	}
	return out
}

// genHihat: noise ring-modulated at 8 kHz, fast decay.
func genHihat() []float64 {
	n := int(0.08 * SampleRate)
	out := make([]float64, n)
	seed := uint64(44444)
	for i := 0; i < n; i++ {
		t := float64(i) / SampleRate
		s := lcg(&seed) * math.Sin(2*math.Pi*8000*t)
		out[i] = softSat(s * math.Exp(-40*t) * 0.4)
	}
	return out
}

// genClap: noise burst with a delayed second hit.
func genClap() []float64 {
	n := int(0.10 * SampleRate)
	out := make([]float64, n)
	seed := uint64(66666)
	for i := 0; i < n; i++ {
		t := float64(i) / SampleRate
		env := math.Exp(-30 * t)
		if t > 0.02 {
			env += 0.5 * math.Exp(-30*(t-0.02))
		}
		out[i] = softSat(lcg(&seed) * env * 0.5)
	}
	return out
}

// genTom: pitch-swept sine from 150 Hz, mid body.
func genTom() []float64 {
	n := int(0.25 * SampleRate)
	out := make([]float64, n)
	phase := 0.0
	for i := 0; i < n; i++ {
		t := float64(i) / SampleRate
		freq := 150 * math.Exp(-8*t)
		phase += 2 * math.Pi * freq / SampleRate
		out[i] = softSat(math.Sin(phase) * math.Exp(-10*t) * 0.7)
	}
	return out
}

// genCrash: bright noise over inharmonic metal partials, long decay.
func genCrash() []float64 {
	n := int(0.90 * SampleRate)
	out := make([]float64, n)
	seed := uint64(88888)
	for i := 0; i < n; i++ {
		t := float64(i) / SampleRate
		metal := math.Sin(2*math.Pi*5230*t) + math.Sin(2*math.Pi*7410*t)*0.6 +
			math.Sin(2*math.Pi*9070*t)*0.4
		s := lcg(&seed)*0.75 + metal*0.1
		out[i] = softSat(s * math.Exp(-4*t) * 0.5)
	}
	return out
}

// SynthTone renders a 0.3s melodic tone at freq: fundamental plus two
// harmonics at halving amplitude, shaped by an ADSR envelope. Used for
// the arpeggiator voices, precomputed once per scale pitch.
func SynthTone(freq float64) []float64 {
	n := int(0.30 * SampleRate)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / SampleRate
		p := float64(i) / float64(n)
		env := adsr(p, 0.03, 0.12, 0.62, 0.30)
		s := math.Sin(2*math.Pi*freq*t) +
			0.5*math.Sin(4*math.Pi*freq*t) +
			0.25*math.Sin(6*math.Pi*freq*t)
		out[i] = softSat(s * env * 0.45)
	}
	return out
}
