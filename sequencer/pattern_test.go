package sequencer

import (
	"strings"
	"testing"
)

func TestBuiltinBank(t *testing.T) {
	bank := BuiltinBank()
	if bank.Len() != 7 {
		t.Fatalf("builtin bank has %d patterns, want 7", bank.Len())
	}
	for i := 0; i < bank.Len(); i++ {
		p := bank.Pattern(i)
		if err := p.Validate(); err != nil {
			t.Errorf("pattern %d (%s): %v", i, p.Name, err)
		}
		if len(p.Lanes) == 0 {
			t.Errorf("pattern %d (%s) has no lanes", i, p.Name)
		}
	}
}

func TestPatternValidate(t *testing.T) {
	tests := []struct {
		name    string
		pattern Pattern
		wantErr string
	}{
		{
			name:    "missing name",
			pattern: Pattern{},
			wantErr: "no name",
		},
		{
			name:    "swing too large",
			pattern: Pattern{Name: "x", Swing: 0.5},
			wantErr: "swing",
		},
		{
			name:    "negative swing",
			pattern: Pattern{Name: "x", Swing: -0.1},
			wantErr: "swing",
		},
		{
			name: "unknown instrument",
			pattern: Pattern{Name: "x", Lanes: map[string]Lane{
				"cowbell": lane(map[int]float64{0: 1}),
			}},
			wantErr: "unknown instrument",
		},
		{
			name: "velocity out of range",
			pattern: Pattern{Name: "x", Lanes: map[string]Lane{
				"kick": lane(map[int]float64{0: 1.5}),
			}},
			wantErr: "velocity",
		},
		{
			name: "active step with zero velocity",
			pattern: Pattern{Name: "x", Lanes: map[string]Lane{
				"kick": {0: {Active: true, Velocity: 0}},
			}},
			wantErr: "velocity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pattern.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewBankRejectsEmpty(t *testing.T) {
	if _, err := NewBank(nil); err == nil {
		t.Error("empty bank should be rejected")
	}
}

func TestBankIndexWraps(t *testing.T) {
	bank := BuiltinBank()
	if bank.Pattern(7).Name != bank.Pattern(0).Name {
		t.Error("index past the end should wrap")
	}
	if bank.Pattern(-1).Name != bank.Pattern(6).Name {
		t.Error("negative index should wrap from the end")
	}
}

func TestLoadBankMissingFile(t *testing.T) {
	if _, err := LoadBank("/no/such/file.json"); err == nil {
		t.Error("missing file should be an error")
	}
}

func TestKnownInstrument(t *testing.T) {
	for _, inst := range InstrumentPriority {
		if !KnownInstrument(inst) {
			t.Errorf("%q should be known", inst)
		}
	}
	if KnownInstrument("theremin") {
		t.Error("unknown instrument accepted")
	}
}
