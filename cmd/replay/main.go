// Command replay drives the scheduler from a recorded gesture log and
// prints every trigger instead of rendering audio. Useful for checking
// what a recorded session will play before going live.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"tonguebeat/config"
	"tonguebeat/gesture"
	"tonguebeat/scale"
	"tonguebeat/sequencer"
)

// printSink logs triggers with a timestamp relative to start.
type printSink struct {
	start time.Time
}

func (p *printSink) Trigger(instrument string, velocity float64) {
	fmt.Printf("%8.3f  %-6s vel=%.2f\n", time.Since(p.start).Seconds(), instrument, velocity)
}

func (p *printSink) TriggerNote(note scale.Note, volume float64) {
	fmt.Printf("%8.3f  note   %.1fHz (deg %d oct %d) vol=%.2f\n",
		time.Since(p.start).Seconds(), note.Frequency, note.Degree, note.Octave, volume)
}

func main() {
	fps := flag.Int("fps", 30, "replay frame rate")
	bars := flag.Int("bars", 8, "stop after this many bars")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: replay [-fps n] [-bars n] <gestures.jsonl>")
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	mapper := scale.NewMapper(scale.Get(cfg.Scale.Name), cfg.Scale.OctaveRange)
	clock := sequencer.NewClock(float64(cfg.Tempo.BPM), float64(cfg.Tempo.MinBPM), float64(cfg.Tempo.MaxBPM))

	sink := &printSink{start: time.Now()}
	cond := gesture.NewConditioner(gesture.Params{})
	manager := sequencer.NewManager(sequencer.BuiltinBank(), clock, mapper, cond, sink)

	fm := make(map[gesture.Finger]string, len(cfg.FingerMap))
	for name, inst := range cfg.FingerMap {
		if finger, ok := gesture.FingerByName(name); ok {
			fm[finger] = inst
		}
	}
	manager.SetFingerMap(fm)
	manager.SetInstrumentVolumes(cfg.Audio.InstrumentVolumes)

	cond.OnTempoDelta(manager.AdjustTempo)
	cond.OnFist(manager.NextPattern)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := gesture.NewReplaySource(flag.Arg(0), *fps, false)
	go src.Run(ctx)
	go func() {
		for frame := range src.Frames() {
			cond.Update(frame)
		}
	}()

	manager.Play()
	defer manager.Stop()

	// Count bars from observed step changes, not wall time, so a log that
	// steers the tempo still plays exactly the requested bars.
	wantSteps := *bars * sequencer.StepsPerPattern
	steps := 0
	lastStep := -1
	for steps < wantSteps {
		<-manager.UpdateChan
		step, _, _, _, _ := manager.GetState()
		if step != lastStep {
			lastStep = step
			steps++
		}
	}
	_, _, bpm, pattern, _ := manager.GetState()
	fmt.Printf("\ndone: %d steps, final bpm %.1f, pattern %d\n", steps, bpm, pattern+1)
}
