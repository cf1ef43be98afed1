package midi

import (
	"math"
	"testing"
)

// feedTicks advances the tracker by n ticks spaced dt apart, starting at t0.
// Returns the timestamp of the last tick.
func feedTicks(c *ClockTracker, t0 float64, n int, dt float64) float64 {
	t := t0
	for i := 0; i < n; i++ {
		c.OnTick(t)
		t += dt
	}
	return t - dt
}

func TestClockTempoConvergence(t *testing.T) {
	c := NewClockTracker()
	// one beat per second: 24 ticks spaced 1/24 s apart = 60 BPM
	dt := 1.0 / 24.0

	last := feedTicks(c, 0, 24, dt)

	d := c.Debug()
	if !d.HasBPM {
		t.Fatal("no bpm estimate after 24 ticks")
	}
	if math.Abs(d.BPM-60.0)/60.0 > 0.01 {
		t.Errorf("bpm after 24 ticks: got %f, want 60 within 1%%", d.BPM)
	}

	// 100 more ticks at the same interval: estimate must stay stable
	feedTicks(c, last+dt, 100, dt)
	d = c.Debug()
	if math.Abs(d.BPM-60.0)/60.0 > 0.005 {
		t.Errorf("bpm after 124 ticks: got %f, want 60 within 0.5%%", d.BPM)
	}
	if d.TickCount != 124 {
		t.Errorf("tick count: got %d, want 124", d.TickCount)
	}
}

func TestClockSpuriousIntervalRejected(t *testing.T) {
	c := NewClockTracker()
	dt := 0.5 / 24.0

	last := feedTicks(c, 0, 24, dt)
	before := c.Debug()

	// One tick arriving 0.5s late: outside [2ms, 250ms], excluded from the
	// window but still counted.
	c.OnTick(last + 0.5)
	d := c.Debug()
	if d.WindowLen != before.WindowLen {
		t.Errorf("spurious interval entered the window: %d -> %d", before.WindowLen, d.WindowLen)
	}
	if d.TickCount != before.TickCount+1 {
		t.Errorf("tick count not incremented: got %d", d.TickCount)
	}
	if !d.Running {
		t.Error("transport stopped by spurious interval")
	}

	// Resume the normal pace; the estimate must recover to 120.
	feedTicks(c, last+0.5+dt, 96, dt)
	d = c.Debug()
	if math.Abs(d.BPM-120.0)/120.0 > 0.005 {
		t.Errorf("bpm after recovery: got %f, want 120", d.BPM)
	}
}

func TestClockStartResetsState(t *testing.T) {
	c := NewClockTracker()
	feedTicks(c, 0, 48, 0.02)
	if d := c.Debug(); !d.HasBPM || d.TickCount != 48 {
		t.Fatalf("precondition: bpm=%v ticks=%d", d.HasBPM, d.TickCount)
	}

	c.OnStart()

	d := c.Debug()
	if d.TickCount != 0 {
		t.Errorf("tick count after Start: got %d, want 0", d.TickCount)
	}
	if d.HasBPM {
		t.Error("bpm estimate survived Start")
	}
	if d.WindowLen != 0 {
		t.Errorf("interval window after Start: got %d, want 0", d.WindowLen)
	}

	// Pulse is one-shot: true exactly once, false on the next read.
	s := c.State()
	if !s.StartPulse {
		t.Error("first State() after Start: startPulse=false, want true")
	}
	if !s.Running {
		t.Error("not running after Start")
	}
	s = c.State()
	if s.StartPulse {
		t.Error("second State() call: startPulse=true, want false")
	}
}

func TestClockStopResetsCounters(t *testing.T) {
	c := NewClockTracker()
	feedTicks(c, 0, 48, 0.02)

	c.OnStop()

	d := c.Debug()
	if d.Running {
		t.Error("running after Stop")
	}
	if d.TickCount != 0 || d.WindowLen != 0 || d.HasBPM {
		t.Errorf("counters survived Stop: ticks=%d win=%d hasBPM=%v",
			d.TickCount, d.WindowLen, d.HasBPM)
	}
}

func TestClockContinueKeepsCounters(t *testing.T) {
	c := NewClockTracker()
	feedTicks(c, 0, 30, 0.02)
	c.OnStop()
	c.OnContinue()

	d := c.Debug()
	if !d.Running {
		t.Error("not running after Continue")
	}
	if d.TickCount != 0 {
		// Stop zeroed the count; Continue must not touch it either way.
		t.Errorf("Continue changed tick count: got %d", d.TickCount)
	}
	if s := c.State(); s.StartPulse {
		t.Error("Continue armed the start pulse")
	}
}

func TestClockTickWhileStoppedStartsTransport(t *testing.T) {
	c := NewClockTracker()
	// Some sources omit Start entirely.
	c.OnTick(1.0)
	d := c.Debug()
	if !d.Running {
		t.Error("tick did not start the transport")
	}
	if d.TickCount != 1 {
		t.Errorf("tick count: got %d, want 1", d.TickCount)
	}
	if s := c.State(); s.StartPulse {
		t.Error("bare tick armed the start pulse")
	}
}

func TestClockWindowCapped(t *testing.T) {
	c := NewClockTracker()
	feedTicks(c, 0, 300, 0.02)
	if d := c.Debug(); d.WindowLen > 96 {
		t.Errorf("interval window exceeded cap: %d", d.WindowLen)
	}
}

func TestClockNoEstimateBeforeFourIntervals(t *testing.T) {
	c := NewClockTracker()
	feedTicks(c, 0, 4, 0.02) // 4 ticks = 3 intervals
	if d := c.Debug(); d.HasBPM {
		t.Errorf("bpm defined with only %d intervals", d.WindowLen)
	}
	c.OnTick(4 * 0.02) // 4th interval
	if d := c.Debug(); !d.HasBPM {
		t.Error("bpm undefined with 4 intervals")
	}
}

func TestBeatEdgeDerivation(t *testing.T) {
	// Beat edge fires exactly when beatIndex changes: 23 -> 24.
	edges := 0
	var last uint64
	haveLast := false
	for ticks := uint64(0); ticks <= 25; ticks++ {
		bi := BeatIndex(ticks)
		if haveLast && bi != last {
			edges++
			if ticks != 24 {
				t.Errorf("beat edge at tick %d, want 24", ticks)
			}
		}
		last = bi
		haveLast = true
	}
	if edges != 1 {
		t.Errorf("beat edges in 0..25: got %d, want 1", edges)
	}
}

func TestBarPhase(t *testing.T) {
	cases := []struct {
		ticks uint64
		want  float64
	}{
		{0, 0.0},
		{24, 0.25},  // beat 1 of 4
		{48, 0.5},   // beat 2
		{96, 0.0},   // bar wraps
		{120, 0.25}, // second bar, beat 1
	}
	for _, tc := range cases {
		if got := BarPhase(tc.ticks); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("BarPhase(%d) = %f, want %f", tc.ticks, got, tc.want)
		}
	}
}

func TestSyncPhase(t *testing.T) {
	// 2 beats per cycle: 48 ticks = one full cycle.
	if got := SyncPhase(48, 2.0); math.Abs(got-2*math.Pi) > 1e-9 {
		t.Errorf("SyncPhase(48, 2) = %f, want 2*pi", got)
	}
	// beatsPerCycle <= 0 is clamped to 1: 24 ticks = full cycle.
	if got := SyncPhase(24, 0); math.Abs(got-2*math.Pi) > 1e-9 {
		t.Errorf("SyncPhase(24, 0) = %f, want 2*pi", got)
	}
	if got := SyncPhase(24, -3); math.Abs(got-2*math.Pi) > 1e-9 {
		t.Errorf("SyncPhase(24, -3) = %f, want 2*pi", got)
	}
}
