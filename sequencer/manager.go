package sequencer

import (
	"sync"
	"time"

	"tonguebeat/debug"
	"tonguebeat/gesture"
	"tonguebeat/scale"
)

// Sink receives trigger events from the scheduler. The audio engine is
// the primary sink; a MIDI mirror can be attached alongside it.
type Sink interface {
	Trigger(instrument string, velocity float64)
	TriggerNote(note scale.Note, volume float64)
}

// ControlSource hands the scheduler the latest conditioned gesture
// snapshot. Reading must never block: staleness is acceptable, blocking
// is not.
type ControlSource interface {
	Latest() *gesture.ControlState
}

// arpOffsets cycles the arpeggio around the height-selected note.
var arpOffsets = [4]int{0, 2, 4, 2}

// Manager is the step scheduler: it owns the clock and the playback loop,
// reads gesture snapshots each tick, and emits trigger events to sinks.
type Manager struct {
	sinks   []Sink
	control ControlSource
	bank    *Bank
	clock   *Clock
	mapper  *scale.Mapper

	// fingerFor gates each drum lane on a raised finger. Instruments
	// without an entry are always armed.
	fingerFor map[string]gesture.Finger
	// instVolume scales lane velocities; missing entries mean 1.0.
	instVolume map[string]float64
	// enabled excludes instruments whose assets failed to load.
	enabled map[string]bool

	mu      sync.RWMutex
	pattern int
	next    int
	muted   map[string]bool
	playing bool
	arpStep int

	stopChan chan struct{}

	// UpdateChan notifies the TUI after each tick or control change.
	UpdateChan chan struct{}
}

// NewManager creates a scheduler over the given bank and clock. All
// instruments start enabled; use SetEnabled after asset loading.
func NewManager(bank *Bank, clock *Clock, mapper *scale.Mapper, control ControlSource, sinks ...Sink) *Manager {
	enabled := make(map[string]bool, len(InstrumentPriority))
	for _, inst := range InstrumentPriority {
		enabled[inst] = true
	}
	return &Manager{
		sinks:      sinks,
		control:    control,
		bank:       bank,
		clock:      clock,
		mapper:     mapper,
		fingerFor:  make(map[string]gesture.Finger),
		instVolume: make(map[string]float64),
		enabled:    enabled,
		muted:      make(map[string]bool),
		UpdateChan: make(chan struct{}, 1),
	}
}

// SetFingerMap wires finger→instrument assignments (configuration data).
func (m *Manager) SetFingerMap(byFinger map[gesture.Finger]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fingerFor = make(map[string]gesture.Finger, len(byFinger))
	for finger, inst := range byFinger {
		m.fingerFor[inst] = finger
	}
}

// SetInstrumentVolumes sets per-instrument base volumes.
func (m *Manager) SetInstrumentVolumes(vols map[string]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instVolume = vols
}

// SetEnabled marks which instruments have playable assets. Disabled
// instruments are silently excluded from triggering.
func (m *Manager) SetEnabled(enabled map[string]bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// Play starts the scheduler loop from step 0.
func (m *Manager) Play() {
	m.mu.Lock()
	if m.playing {
		m.mu.Unlock()
		return
	}
	m.playing = true
	m.stopChan = make(chan struct{})
	m.clock.Reset(time.Now())
	stop := m.stopChan
	m.mu.Unlock()

	debug.Log("sched", "play: bpm=%.1f pattern=%d", m.clock.BPM(), m.pattern)
	go m.run(stop)
}

// Stop halts the loop between ticks; an in-flight tick finishes emitting.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing {
		return
	}
	m.playing = false
	close(m.stopChan)
	debug.Log("sched", "stop")
}

// Playing reports whether the loop is running.
func (m *Manager) Playing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playing
}

// run is the scheduler loop: wait for the step's fire time, emit, advance.
func (m *Manager) run(stop chan struct{}) {
	for {
		m.mu.RLock()
		swing := m.bank.Pattern(m.pattern).Swing
		fireAt, stepDur := m.clock.FireAt(swing)
		m.mu.RUnlock()
		wait := time.Until(fireAt)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-stop:
				timer.Stop()
				return
			case <-timer.C:
			}
		} else {
			select {
			case <-stop:
				return
			default:
			}
			// Fell badly behind (suspend, debugger): re-anchor instead of
			// machine-gunning catch-up steps.
			if wait < -stepDur {
				m.mu.Lock()
				m.clock.Rebase(time.Now())
				m.mu.Unlock()
			}
		}

		m.Tick()
		m.mu.Lock()
		m.clock.Advance(stepDur)
		m.mu.Unlock()
		m.notify()
	}
}

// Tick runs one scheduler step against the latest gesture snapshot:
// quantized pattern switch at step 0, drum lanes gated by the finger
// mask, then the arpeggiator path. Exported so tests can drive the
// scheduler without the timing loop.
func (m *Manager) Tick() {
	cs := m.control.Latest()

	m.mu.Lock()
	step := m.clock.Step()

	// Pattern switches are quantized to the bar: never mid-pattern.
	if step == 0 && m.next != m.pattern {
		m.pattern = m.next
		debug.Log("sched", "pattern -> %d (%s)", m.pattern, m.bank.Pattern(m.pattern).Name)
	}
	pat := m.bank.Pattern(m.pattern)

	// Fixed-size trigger buffer: the hot path must not allocate.
	var fires [len(InstrumentPriority)]struct {
		inst string
		vel  float64
	}
	n := 0
	for _, inst := range InstrumentPriority {
		lane, ok := pat.Lanes[inst]
		if !ok || !m.enabled[inst] || m.muted[inst] {
			continue
		}
		if finger, gated := m.fingerFor[inst]; gated && !cs.FingerMask.Has(finger) {
			continue
		}
		s := lane[step%StepsPerPattern]
		if !s.Active {
			continue
		}
		fires[n].inst = inst
		fires[n].vel = s.Velocity * m.volumeFor(inst)
		n++
	}

	arpFire := cs.LeftPresent
	var arpNote scale.Note
	var arpVol float64
	if arpFire {
		base := m.mapper.MapHeight(cs.PitchHeight)
		offset := arpOffsets[m.arpStep%len(arpOffsets)]
		arpNote = m.mapper.NoteAt(base.Index(m.mapper.DegreeCount()) + offset)
		arpVol = cs.Volume
		m.arpStep++
	}

	m.mu.Unlock()

	for i := 0; i < n; i++ {
		for _, sink := range m.sinks {
			sink.Trigger(fires[i].inst, fires[i].vel)
		}
	}
	if arpFire {
		for _, sink := range m.sinks {
			sink.TriggerNote(arpNote, arpVol)
		}
	}

	debug.LogEvery(64, "sched", "step=%d fired=%d arp=%v", step, n, arpFire)
}

func (m *Manager) volumeFor(inst string) float64 {
	if v, ok := m.instVolume[inst]; ok {
		return v
	}
	return 1.0
}

// SetTempo sets the BPM, clamped to the configured range.
func (m *Manager) SetTempo(bpm float64) {
	m.clock.SetBPM(bpm)
	m.notify()
}

// AdjustTempo applies a relative BPM change (the pinch-gesture path).
func (m *Manager) AdjustTempo(delta float64) {
	m.clock.AdjustBPM(delta)
	m.notify()
}

// QueuePattern requests a pattern switch at the next step-0 boundary.
func (m *Manager) QueuePattern(idx int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx >= 0 && idx < m.bank.Len() {
		m.next = idx
	}
}

// NextPattern queues the following pattern (the fist gesture's action).
func (m *Manager) NextPattern() {
	m.mu.Lock()
	m.next = (m.next + 1) % m.bank.Len()
	next := m.next
	m.mu.Unlock()
	debug.Log("sched", "queued pattern %d", next)
	m.notify()
}

// ToggleMute flips an instrument's user mute.
func (m *Manager) ToggleMute(inst string) {
	m.mu.Lock()
	m.muted[inst] = !m.muted[inst]
	m.mu.Unlock()
	m.notify()
}

// Muted reports an instrument's user-mute state.
func (m *Manager) Muted(inst string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.muted[inst]
}

// Enabled reports whether an instrument's assets loaded.
func (m *Manager) Enabled(inst string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled[inst]
}

// GetState returns a snapshot for display.
func (m *Manager) GetState() (step int, playing bool, bpm float64, pattern, next int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clock.Step(), m.playing, m.clock.BPM(), m.pattern, m.next
}

// CurrentPattern returns the playing pattern. Patterns are immutable
// after load, so sharing the pointer with the display is safe.
func (m *Manager) CurrentPattern() *Pattern {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bank.Pattern(m.pattern)
}

// PatternName returns the display name for a bank index.
func (m *Manager) PatternName(idx int) string {
	return m.bank.Pattern(idx).Name
}

// BankLen returns the number of patterns available.
func (m *Manager) BankLen() int { return m.bank.Len() }

// notify pokes the TUI without ever blocking the scheduler.
func (m *Manager) notify() {
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}
