package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tonguebeat/audio"
	"tonguebeat/config"
	"tonguebeat/debug"
	"tonguebeat/gesture"
	"tonguebeat/midi"
	"tonguebeat/scale"
	"tonguebeat/sequencer"
	"tonguebeat/tui"
)

func main() {
	replayPath := flag.String("replay", "", "gesture log (JSONL) to drive the instrument")
	replayFPS := flag.Int("fps", 30, "replay frame rate")
	replayLoop := flag.Bool("loop", false, "restart the gesture log when it ends")
	patternsPath := flag.String("patterns", "", "pattern bank JSON (default: builtin bank)")
	debugLog := flag.Bool("debug", false, "write debug log to ~/.config/tonguebeat/debug.log")
	flag.Parse()

	if *debugLog {
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	bank := sequencer.BuiltinBank()
	if *patternsPath != "" {
		bank, err = sequencer.LoadBank(*patternsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "patterns: %v\n", err)
			os.Exit(1)
		}
	}

	mapper := scale.NewMapper(scale.Get(cfg.Scale.Name), cfg.Scale.OctaveRange)
	clock := sequencer.NewClock(float64(cfg.Tempo.BPM), float64(cfg.Tempo.MinBPM), float64(cfg.Tempo.MaxBPM))

	// Render every pitch the mapper can select before the first tick.
	lib := audio.LoadLibrary(cfg.Audio.AssetsDir, sequencer.InstrumentPriority[:])
	freqs := make([]float64, mapper.Bins())
	for i := range freqs {
		freqs[i] = mapper.NoteAt(i).Frequency
	}
	lib.PrecomputeTones(freqs)

	engine := audio.NewEngine(lib, cfg.Audio.VoicePoolSizePerInstrument, cfg.Audio.MasterVolume)
	if err := engine.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "audio device: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	sinks := []sequencer.Sink{engine}
	if cfg.MIDI.PortName != "" {
		mirror, err := midi.NewMirror(cfg.MIDI.PortName, cfg.MIDI.Channel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "midi mirror disabled: %v\n", err)
		} else {
			defer mirror.Close()
			sinks = append(sinks, mirror)
		}
	}

	cond := gesture.NewConditioner(gestureParams(cfg))
	manager := sequencer.NewManager(bank, clock, mapper, cond, sinks...)
	manager.SetFingerMap(fingerMap(cfg))
	manager.SetInstrumentVolumes(cfg.Audio.InstrumentVolumes)
	manager.SetEnabled(lib.Enabled())

	cond.OnTempoDelta(manager.AdjustTempo)
	cond.OnFist(manager.NextPattern)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *replayPath != "" {
		src := gesture.NewReplaySource(*replayPath, *replayFPS, *replayLoop)
		go func() {
			if err := src.Run(ctx); err != nil && ctx.Err() == nil {
				debug.Log("main", "gesture source stopped: %v", err)
			}
		}()
		go func() {
			for frame := range src.Frames() {
				cond.Update(frame)
			}
		}()
	}

	manager.Play()

	m := tui.NewModel(manager, cond)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// gestureParams converts the serialized config into conditioner tuning.
func gestureParams(cfg *config.Config) gesture.Params {
	return gesture.Params{
		SmoothingAlpha:        cfg.Gesture.SmoothingAlpha,
		PinchArmThreshold:     cfg.Gesture.PinchArmThreshold,
		PinchReleaseThreshold: cfg.Gesture.PinchReleaseThreshold,
		PinchArmFrames:        cfg.Gesture.PinchArmFrames,
		ConfidenceThreshold:   cfg.Gesture.ConfidenceThreshold,
		HandLossTimeout:       time.Duration(cfg.Gesture.HandLossTimeoutMs) * time.Millisecond,
		BPMPerUnitHeight:      cfg.Gesture.BPMPerUnitHeight,
	}
}

// fingerMap resolves the configured finger names, skipping unknown ones.
func fingerMap(cfg *config.Config) map[gesture.Finger]string {
	out := make(map[gesture.Finger]string, len(cfg.FingerMap))
	for name, inst := range cfg.FingerMap {
		finger, ok := gesture.FingerByName(name)
		if !ok {
			fmt.Fprintf(os.Stderr, "config: unknown finger %q ignored\n", name)
			continue
		}
		if !sequencer.KnownInstrument(inst) {
			fmt.Fprintf(os.Stderr, "config: unknown instrument %q ignored\n", inst)
			continue
		}
		out[finger] = inst
	}
	return out
}
