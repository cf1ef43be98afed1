package midi

import (
	"math"

	"psiwave-matrix/debug"
)

// PPQN is the MIDI clock standard: 24 pulses per quarter note.
const PPQN = 24

const (
	// inter-tick gaps outside this window are spurious and excluded from
	// the tempo average
	minTickInterval = 0.002
	maxTickInterval = 0.25

	intervalWindow     = 96
	minIntervalSamples = 4

	beatsPerBar = 4
)

// ClockState is the per-frame snapshot consumers act on. BPM is only
// meaningful when HasBPM is set.
type ClockState struct {
	Running    bool
	BPM        float64
	HasBPM     bool
	StartPulse bool
}

// ClockDebug is a non-consuming diagnostic snapshot.
type ClockDebug struct {
	Running         bool
	BPM             float64
	HasBPM          bool
	TickCount       uint64
	LastInterval    float64
	HasLastInterval bool
	WindowLen       int
}

// ClockTracker decodes MIDI real-time clock into transport state, a tick
// count and a smoothed tempo estimate. All methods must be called from the
// render-loop goroutine; the decoder funnels driver callbacks onto it.
type ClockTracker struct {
	running      bool
	tickCount    uint64
	lastTickT    float64
	haveLastTick bool
	intervals    []float64
	bpm          float64
	hasBPM       bool
	startPulse   bool
	lastDT       float64
	hasLastDT    bool
	firstTickLog bool
}

// NewClockTracker returns a tracker in the Stopped state.
func NewClockTracker() *ClockTracker {
	return &ClockTracker{}
}

// OnStart handles MIDI Start (0xFA): transport restarts from tick zero and
// the one-shot start pulse is armed.
func (c *ClockTracker) OnStart() {
	c.running = true
	c.haveLastTick = false
	c.intervals = c.intervals[:0]
	c.bpm = 0
	c.hasBPM = false
	c.startPulse = true
	c.tickCount = 0
	c.lastDT = 0
	c.hasLastDT = false
}

// OnContinue handles MIDI Continue (0xFB): transport resumes, counters keep.
func (c *ClockTracker) OnContinue() {
	c.running = true
}

// OnStop handles MIDI Stop (0xFC): transport stops and counters reset.
func (c *ClockTracker) OnStop() {
	c.running = false
	c.haveLastTick = false
	c.intervals = c.intervals[:0]
	c.bpm = 0
	c.hasBPM = false
	c.tickCount = 0
	c.lastDT = 0
	c.hasLastDT = false
}

// OnTick handles one MIDI clock pulse (0xF8) arriving at time now.
func (c *ClockTracker) OnTick(now float64) {
	if !c.firstTickLog {
		c.firstTickLog = true
		debug.Log("clock", "first clock tick received (MIDI clock sync active)")
	}
	if !c.running {
		// some sources send ticks without an explicit Start
		c.running = true
	}
	c.tickCount++

	if c.haveLastTick {
		dt := now - c.lastTickT
		c.lastDT = dt
		c.hasLastDT = true
		if dt >= minTickInterval && dt <= maxTickInterval {
			c.intervals = append(c.intervals, dt)
			if len(c.intervals) > intervalWindow {
				n := copy(c.intervals, c.intervals[len(c.intervals)-intervalWindow:])
				c.intervals = c.intervals[:n]
			}
			if len(c.intervals) >= minIntervalSamples {
				sum := 0.0
				for _, v := range c.intervals {
					sum += v
				}
				avg := sum / float64(len(c.intervals))
				if avg > 0 {
					c.bpm = 60.0 / (avg * PPQN)
					c.hasBPM = true
				}
			}
		}
	}
	c.lastTickT = now
	c.haveLastTick = true
}

// State returns the transport snapshot, clearing the start pulse. The
// pulse is one-shot: poll from a single call site once per frame, or the
// event is lost.
func (c *ClockTracker) State() ClockState {
	s := ClockState{
		Running:    c.running,
		BPM:        c.bpm,
		HasBPM:     c.hasBPM,
		StartPulse: c.startPulse,
	}
	c.startPulse = false
	return s
}

// Debug returns a diagnostic snapshot without consuming anything.
func (c *ClockTracker) Debug() ClockDebug {
	return ClockDebug{
		Running:         c.running,
		BPM:             c.bpm,
		HasBPM:          c.hasBPM,
		TickCount:       c.tickCount,
		LastInterval:    c.lastDT,
		HasLastInterval: c.hasLastDT,
		WindowLen:       len(c.intervals),
	}
}

// BeatIndex returns the zero-based beat number for a tick count.
func BeatIndex(ticks uint64) uint64 {
	return ticks / PPQN
}

// BarPhase returns the position within a 4-beat bar as 0..1.
func BarPhase(ticks uint64) float64 {
	beats := float64(ticks) / PPQN
	return math.Mod(beats, beatsPerBar) / beatsPerBar
}

// SyncPhase returns an animation phase in radians that advances 2*pi every
// beatsPerCycle beats. beatsPerCycle <= 0 is clamped to 1.
func SyncPhase(ticks uint64, beatsPerCycle float64) float64 {
	if beatsPerCycle <= 0 {
		beatsPerCycle = 1.0
	}
	return 2.0 * math.Pi * (float64(ticks) / PPQN) / beatsPerCycle
}
