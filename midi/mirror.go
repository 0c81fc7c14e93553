// Package midi mirrors trigger events to an external MIDI output so a
// hardware synth or DAW can double the builtin engine.
package midi

import (
	"fmt"
	"math"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"tonguebeat/debug"
	"tonguebeat/scale"
)

// General MIDI percussion notes for the drum lanes.
var gmNotes = map[string]uint8{
	"kick":  36,
	"snare": 38,
	"hihat": 42,
	"clap":  39,
	"tom":   45,
	"crash": 49,
}

// Mirror forwards triggers as NoteOn/NoteOff pairs on one output port.
// It satisfies the scheduler's sink interface alongside the audio
// engine; send failures are logged and dropped, never propagated into
// the timing loop.
type Mirror struct {
	outPort drivers.Out
	send    func(msg gomidi.Message) error
	channel uint8
}

// NewMirror opens the first output port whose name contains portName
// (case-insensitive). channel is the 0-based MIDI channel for melodic
// notes; percussion always goes to channel 9 per GM convention.
func NewMirror(portName string, channel uint8) (*Mirror, error) {
	if portName == "" {
		return nil, fmt.Errorf("no midi port configured")
	}
	want := strings.ToLower(portName)
	var outPort drivers.Out
	for _, op := range gomidi.GetOutPorts() {
		if strings.Contains(strings.ToLower(op.String()), want) {
			outPort = op
			break
		}
	}
	if outPort == nil {
		return nil, fmt.Errorf("midi output port %q not found", portName)
	}
	send, err := gomidi.SendTo(outPort)
	if err != nil {
		return nil, fmt.Errorf("opening midi port %s: %w", outPort.String(), err)
	}
	if channel > 15 {
		channel = 0
	}
	debug.Log("midi", "mirroring to %s", outPort.String())
	return &Mirror{outPort: outPort, send: send, channel: channel}, nil
}

// Trigger mirrors a drum hit on the GM percussion channel.
func (m *Mirror) Trigger(instrument string, velocity float64) {
	note, ok := gmNotes[instrument]
	if !ok {
		return
	}
	m.strike(9, note, velocity, 50*time.Millisecond)
}

// TriggerNote mirrors an arpeggiator note on the configured channel.
func (m *Mirror) TriggerNote(note scale.Note, volume float64) {
	m.strike(m.channel, freqToMIDI(note.Frequency), volume, 150*time.Millisecond)
}

func (m *Mirror) strike(channel, note uint8, level float64, hold time.Duration) {
	if level <= 0 {
		return
	}
	if level > 1 {
		level = 1
	}
	vel := uint8(level * 127)
	if err := m.send(gomidi.NoteOn(channel, note, vel)); err != nil {
		debug.Log("midi", "send failed: %v", err)
		return
	}
	time.AfterFunc(hold, func() {
		m.send(gomidi.NoteOff(channel, note))
	})
}

// Close releases the output port.
func (m *Mirror) Close() {
	if m.outPort != nil {
		m.outPort.Close()
	}
}

// freqToMIDI converts a frequency to the nearest MIDI note number.
func freqToMIDI(freq float64) uint8 {
	if freq <= 0 {
		return 0
	}
	n := math.Round(69 + 12*math.Log2(freq/440.0))
	if n < 0 {
		n = 0
	}
	if n > 127 {
		n = 127
	}
	return uint8(n)
}
