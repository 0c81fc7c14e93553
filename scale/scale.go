// Package scale quantizes continuous control values onto musical pitches.
package scale

// Scale is a named set of scale-degree frequencies for the base octave.
type Scale struct {
	Name  string
	Freqs []float64 // one frequency per degree, ascending
}

// DegreeCount returns the number of scale degrees per octave.
func (s Scale) DegreeCount() int { return len(s.Freqs) }

// Scales contains the available scale definitions.
var Scales = map[string]Scale{
	"c-minor-pentatonic": {
		Name: "C Minor Pentatonic",
		// C3, Eb3, F3, G3, Bb3
		Freqs: []float64{130.81, 155.56, 174.61, 196.00, 233.08},
	},
	"a-major-pentatonic": {
		Name: "A Major Pentatonic",
		// A3, B3, C#4, E4, F#4
		Freqs: []float64{220.00, 246.94, 277.18, 329.63, 369.99},
	},
}

// DefaultScale is used when a configured scale name is unknown.
const DefaultScale = "c-minor-pentatonic"

// Get returns a scale by name, defaulting to DefaultScale if not found.
func Get(name string) Scale {
	if s, ok := Scales[name]; ok {
		return s
	}
	return Scales[DefaultScale]
}

// Note is a quantized pitch: a scale degree plus octave offset and the
// derived frequency. Immutable once computed.
type Note struct {
	Degree    int
	Octave    int
	Frequency float64
}

// Index returns the note's position on the mapper's linear bin axis.
func (n Note) Index(degreeCount int) int { return n.Octave*degreeCount + n.Degree }

// Mapper converts a continuous height in [0,1] into a quantized Note.
// Stateless and deterministic: equal inputs always yield equal notes.
type Mapper struct {
	scale       Scale
	octaveRange int
}

// NewMapper builds a mapper over octaveRange octaves of the scale.
func NewMapper(s Scale, octaveRange int) *Mapper {
	if octaveRange < 1 {
		octaveRange = 1
	}
	return &Mapper{scale: s, octaveRange: octaveRange}
}

// Bins returns the number of distinct pitches the mapper can produce.
func (m *Mapper) Bins() int { return m.scale.DegreeCount() * m.octaveRange }

// DegreeCount returns the degrees per octave of the underlying scale.
func (m *Mapper) DegreeCount() int { return m.scale.DegreeCount() }

// MapHeight quantizes h into one of Bins() equal-width pitch bins. Values
// outside [0,1] are clamped before binning; there is no interpolation —
// pitch is always quantized, never glissando.
func (m *Mapper) MapHeight(h float64) Note {
	if h < 0 {
		h = 0
	}
	if h > 1 {
		h = 1
	}
	idx := int(h * float64(m.Bins()))
	if idx >= m.Bins() {
		idx = m.Bins() - 1
	}
	return m.NoteAt(idx)
}

// NoteAt returns the note for a linear bin index, clamped into range.
// Used by the arpeggio path to offset the height-selected note.
func (m *Mapper) NoteAt(idx int) Note {
	if idx < 0 {
		idx = 0
	}
	if idx >= m.Bins() {
		idx = m.Bins() - 1
	}
	dc := m.scale.DegreeCount()
	degree := idx % dc
	octave := idx / dc
	freq := m.scale.Freqs[degree]
	for i := 0; i < octave; i++ {
		freq *= 2
	}
	return Note{Degree: degree, Octave: octave, Frequency: freq}
}
