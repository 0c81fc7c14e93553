package audio

// fadeSamples is the fast-fade length used when a voice is choked or
// stolen: about 5ms at 44.1kHz, long enough to avoid a click.
const fadeSamples = 220

// voice is one playing one-shot: a position into shared sample data
// plus gain and choke state. Voices are owned by the mixer goroutine
// once started; triggers only append or mark fades under the engine
// lock.
type voice struct {
	samples []float64
	pos     int
	gain    float64
	inst    string
	melodic bool
	age     uint64

	fading   bool
	fadeGain float64
}

// next returns the voice's current output sample and advances it.
func (v *voice) next() float64 {
	if v.done() {
		return 0
	}
	s := v.samples[v.pos] * v.gain
	v.pos++
	if v.fading {
		s *= v.fadeGain
		v.fadeGain -= 1.0 / fadeSamples
	}
	return s
}

// done reports whether the voice has nothing left to contribute.
func (v *voice) done() bool {
	return v.pos >= len(v.samples) || (v.fading && v.fadeGain <= 0)
}

// choke starts the fast fade-out. Idempotent.
func (v *voice) choke() {
	if !v.fading {
		v.fading = true
		v.fadeGain = 1.0
	}
}
