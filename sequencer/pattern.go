package sequencer

import (
	"encoding/json"
	"fmt"
	"os"
)

// The five instrument lanes, in deterministic trigger-emission order.
// When several lanes fire on the same step, events go out in this order
// so mixing and logging are reproducible.
var InstrumentPriority = [...]string{"kick", "snare", "hihat", "tom", "crash"}

// KnownInstrument reports whether name is one of the engine's lanes.
func KnownInstrument(name string) bool {
	for _, inst := range InstrumentPriority {
		if inst == name {
			return true
		}
	}
	return false
}

// Step is one slot of a lane: whether it fires and how hard.
type Step struct {
	Active   bool    `json:"active"`
	Velocity float64 `json:"velocity"`
}

// Lane is one instrument's 16 steps.
type Lane [StepsPerPattern]Step

// Pattern is a named, fixed-shape set of per-instrument lanes. Authored
// once, never mutated at runtime.
type Pattern struct {
	Name  string          `json:"name"`
	Swing float64         `json:"swing"` // fraction of a step applied to odd steps
	Lanes map[string]Lane `json:"lanes"`
}

// Validate checks the fixed-shape invariants at load time.
func (p *Pattern) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("pattern has no name")
	}
	if p.Swing < 0 || p.Swing >= 0.5 {
		return fmt.Errorf("pattern %q: swing %v outside [0, 0.5)", p.Name, p.Swing)
	}
	for inst, lane := range p.Lanes {
		if !KnownInstrument(inst) {
			return fmt.Errorf("pattern %q: unknown instrument %q", p.Name, inst)
		}
		for i, s := range lane {
			if s.Active && (s.Velocity <= 0 || s.Velocity > 1) {
				return fmt.Errorf("pattern %q: %s step %d velocity %v outside (0,1]",
					p.Name, inst, i, s.Velocity)
			}
		}
	}
	return nil
}

// lane builds a Lane from a step→velocity map, patterns.py style.
func lane(hits map[int]float64) Lane {
	var l Lane
	for step, vel := range hits {
		if step >= 0 && step < StepsPerPattern {
			l[step] = Step{Active: true, Velocity: vel}
		}
	}
	return l
}

// everyStep builds a Lane firing every step at the same velocity.
func everyStep(vel float64) Lane {
	return lane(func() map[int]float64 {
		hits := make(map[int]float64, StepsPerPattern)
		for i := 0; i < StepsPerPattern; i++ {
			hits[i] = vel
		}
		return hits
	}())
}

// Bank holds the authored patterns. Loaded once at startup.
type Bank struct {
	patterns []Pattern
}

// NewBank validates and wraps a pattern list.
func NewBank(patterns []Pattern) (*Bank, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("pattern bank is empty")
	}
	for i := range patterns {
		if err := patterns[i].Validate(); err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
	}
	return &Bank{patterns: patterns}, nil
}

// LoadBank reads a pattern bank from a JSON file.
func LoadBank(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pattern bank: %w", err)
	}
	var patterns []Pattern
	if err := json.Unmarshal(data, &patterns); err != nil {
		return nil, fmt.Errorf("parsing pattern bank %s: %w", path, err)
	}
	return NewBank(patterns)
}

// Len returns the number of patterns.
func (b *Bank) Len() int { return len(b.patterns) }

// Pattern returns the pattern at idx; indices wrap modulo the bank size.
func (b *Bank) Pattern(idx int) *Pattern {
	if b.Len() == 0 {
		return nil
	}
	idx %= b.Len()
	if idx < 0 {
		idx += b.Len()
	}
	return &b.patterns[idx]
}

// BuiltinBank returns the seven authored grooves.
func BuiltinBank() *Bank {
	hihat16 := func(base float64, accents map[int]float64) Lane {
		l := everyStep(base)
		for step, vel := range accents {
			l[step] = Step{Active: true, Velocity: vel}
		}
		return l
	}

	bank, err := NewBank([]Pattern{
		{
			Name: "Modern Pop Groove",
			Lanes: map[string]Lane{
				"kick":  lane(map[int]float64{0: 1.0, 4: 0.6, 8: 0.9, 12: 0.5}),
				"snare": lane(map[int]float64{5: 1.0, 13: 1.0}),
				"hihat": everyStep(0.45),
				"crash": lane(map[int]float64{0: 0.8}),
			},
		},
		{
			Name:  "Dark Trap Groove",
			Swing: 0.12,
			Lanes: map[string]Lane{
				"kick":  lane(map[int]float64{0: 1.0, 3: 0.7, 7: 0.9, 10: 0.55}),
				"snare": lane(map[int]float64{4: 1.0, 12: 1.0}),
				"hihat": lane(map[int]float64{2: 0.5, 6: 0.5, 10: 0.5, 14: 0.5}),
				"tom":   lane(map[int]float64{15: 0.4}),
			},
		},
		{
			Name:  "Minimal Trap Beat",
			Swing: 0.15,
			Lanes: map[string]Lane{
				"kick": lane(map[int]float64{0: 1.0, 8: 0.6}),
				"snare": lane(map[int]float64{4: 0.9, 12: 0.9}),
				"hihat": lane(map[int]float64{
					1: 0.35, 2: 0.55, 4: 0.35, 7: 0.6,
					9: 0.55, 12: 0.35, 15: 0.6,
				}),
				"crash": lane(map[int]float64{0: 0.9}),
			},
		},
		{
			Name: "Uptempo Breakbeat",
			Lanes: map[string]Lane{
				"kick":  lane(map[int]float64{0: 1.0, 6: 0.8}),
				"snare": lane(map[int]float64{4: 1.0, 12: 1.0}),
				"hihat": hihat16(0.35, map[int]float64{2: 0.55, 10: 0.55}),
				"tom":   lane(map[int]float64{7: 0.4, 15: 0.4}),
				"crash": lane(map[int]float64{0: 0.9}),
			},
		},
		{
			Name:  "Bounce Groove",
			Swing: 0.10,
			Lanes: map[string]Lane{
				"kick": lane(map[int]float64{
					0: 1.0, 2: 0.8, 4: 1.0, 6: 0.8,
					8: 1.0, 10: 0.8,
				}),
				"snare": lane(map[int]float64{4: 0.9, 12: 0.9}),
				"hihat": lane(map[int]float64{2: 0.5, 6: 0.5, 10: 0.5, 14: 0.5}),
				"crash": lane(map[int]float64{0: 0.75}),
			},
		},
		{
			Name:  "Percussive Groove",
			Swing: 0.12,
			Lanes: map[string]Lane{
				"kick":  lane(map[int]float64{0: 1.0, 3: 0.9, 7: 0.75, 11: 0.8}),
				"snare": lane(map[int]float64{5: 1.0, 13: 1.0}),
				"hihat": everyStep(0.3),
				"tom":   lane(map[int]float64{9: 0.5}),
			},
		},
		{
			Name: "Dance Pop Rhythm",
			Lanes: map[string]Lane{
				"kick":  lane(map[int]float64{0: 1.0, 4: 1.0, 8: 1.0, 12: 1.0}),
				"snare": lane(map[int]float64{4: 1.0, 12: 1.0}),
				"hihat": lane(map[int]float64{2: 0.5, 6: 0.5, 10: 0.5, 14: 0.5, 15: 0.7}),
				"tom":   lane(map[int]float64{7: 0.5}),
				"crash": lane(map[int]float64{0: 1.0}),
			},
		},
	})
	if err != nil {
		// The builtin bank is authored data; a validation failure here is
		// a programming error, not a runtime condition.
		panic(err)
	}
	return bank
}
