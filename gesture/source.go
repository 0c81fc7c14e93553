package gesture

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"tonguebeat/debug"
)

// Source produces tracker frames. The core makes no assumption about how
// frames are produced (webcam bridge, recorded log, synthetic tests) —
// only that they arrive at roughly video-frame cadence and may
// intermittently be absent.
type Source interface {
	Frames() <-chan Frame
	Run(ctx context.Context) error
}

// ReplaySource replays a recorded JSONL gesture log (one Frame per line)
// at a fixed frame rate, re-stamping timestamps to the local clock. Lines
// that fail validation are skipped, not fatal — a recorded tracking glitch
// should degrade exactly like a live one.
type ReplaySource struct {
	path   string
	fps    int
	loop   bool
	frames chan Frame
}

// NewReplaySource replays path at fps frames per second. With loop set,
// the log restarts from the top when exhausted.
func NewReplaySource(path string, fps int, loop bool) *ReplaySource {
	if fps <= 0 {
		fps = 30
	}
	return &ReplaySource{
		path:   path,
		fps:    fps,
		loop:   loop,
		frames: make(chan Frame, 1),
	}
}

func (r *ReplaySource) Frames() <-chan Frame { return r.frames }

// Run streams the log until the context is cancelled or the log ends.
func (r *ReplaySource) Run(ctx context.Context) error {
	defer close(r.frames)

	ticker := time.NewTicker(time.Second / time.Duration(r.fps))
	defer ticker.Stop()

	for {
		if err := r.playOnce(ctx, ticker); err != nil {
			return err
		}
		if !r.loop || ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (r *ReplaySource) playOnce(ctx context.Context, ticker *time.Ticker) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("opening gesture log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var frame Frame
		if err := json.Unmarshal(line, &frame); err != nil {
			debug.Log("replay", "skipping bad line: %v", err)
			continue
		}
		if err := frame.Validate(); err != nil {
			debug.Log("replay", "skipping invalid frame: %v", err)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		frame.T = time.Now()
		select {
		case r.frames <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}
