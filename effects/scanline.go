package effects

import (
	"sort"

	"psiwave-matrix/display"
	"psiwave-matrix/midi"
	"psiwave-matrix/theme"
)

// Scanline sweeps a vertical playhead left-right-left once per bar. Held
// notes trail horizontal bars at their row from the point of impact, and
// fade out after release. Channels pick the bar color. No CC parameters.
type Scanline struct {
	Base

	slots       [][]noteTrail
	nSlots      int
	rowsPerSlot int

	extPhase    float64
	hasExtPhase bool
	lastT       float64
}

// noteTrail tracks one held or fading note bar. Released trails freeze
// their end phase and fade to black over the sustain window.
type noteTrail struct {
	phaseOn  float64
	tOff     float64
	phaseOff float64
	released bool
	channel  int
	note     int
}

const (
	scanlineRowsPerSlot = 2
	// Fallback sweep period when no clock is driving the phase. A full
	// cycle is out and back.
	scanlineBarSeconds  = 4.0
	scanlineSustainSecs = 1.5
)

var scanlineChannelColors = [16]theme.RGB{
	{R: 255, G: 80, B: 80},
	{R: 255, G: 160, B: 60},
	{R: 255, G: 220, B: 60},
	{R: 200, G: 255, B: 80},
	{R: 80, G: 255, B: 120},
	{R: 60, G: 255, B: 200},
	{R: 60, G: 220, B: 255},
	{R: 80, G: 140, B: 255},
	{R: 120, G: 100, B: 255},
	{R: 200, G: 80, B: 255},
	{R: 255, G: 80, B: 200},
	{R: 255, G: 100, B: 140},
	{R: 100, G: 100, B: 255},
	{R: 200, G: 255, B: 100},
	{R: 255, G: 100, B: 150},
	{R: 100, G: 200, B: 255},
}

func NewScanline() *Scanline {
	return &Scanline{Base: Base{P: NewParams()}}
}

func (sc *Scanline) Name() string { return "scanline_notes" }

func (sc *Scanline) Setup(m display.Matrix) {
	sc.Base.Setup(m)
	sc.rowsPerSlot = scanlineRowsPerSlot
	sc.nSlots = sc.H / sc.rowsPerSlot
	if sc.nSlots == 0 {
		sc.nSlots = sc.H
		sc.rowsPerSlot = 1
	}
	sc.slots = make([][]noteTrail, sc.nSlots)
}

func (sc *Scanline) Activate() {
	for i := range sc.slots {
		sc.slots[i] = nil
	}
}

// SetSweepPhase pins the sweep to a bar phase in [0, 1), used for tempo
// sync. ClearSweepPhase falls back to the free-running sweep.
func (sc *Scanline) SetSweepPhase(phase float64) {
	sc.extPhase = phase
	sc.hasExtPhase = true
}

func (sc *Scanline) ClearSweepPhase() {
	sc.hasExtPhase = false
}

func (sc *Scanline) HandleNote(n midi.NoteEvent) {
	if n.Note < 0 || n.Note > 127 || sc.nSlots == 0 {
		return
	}
	slot := n.Note % sc.nSlots
	phase := sc.phase(sc.lastT)

	if n.On {
		sc.slots[slot] = append(sc.slots[slot], noteTrail{
			phaseOn: phase,
			channel: n.Channel,
			note:    n.Note,
		})
		return
	}
	// Release the first still-held trail in the slot.
	for i := range sc.slots[slot] {
		if !sc.slots[slot][i].released {
			sc.slots[slot][i].released = true
			sc.slots[slot][i].tOff = sc.lastT
			sc.slots[slot][i].phaseOff = phase
			return
		}
	}
}

func (sc *Scanline) phase(t float64) float64 {
	if sc.hasExtPhase {
		return wrapUnit(sc.extPhase)
	}
	return wrapUnit(t / scanlineBarSeconds)
}

// phaseToX maps the bouncing sweep: 0..0.5 runs left to right, 0.5..1
// runs back.
func (sc *Scanline) phaseToX(phase float64) int {
	p := wrapUnit(phase)
	w := sc.W - 1
	if w < 1 {
		w = 1
	}
	if p <= 0.5 {
		return int(2.0 * p * float64(w))
	}
	return int(2.0 * (1.0 - p) * float64(w))
}

func wrapUnit(p float64) float64 {
	p -= float64(int(p))
	if p < 0 {
		p++
	}
	return p
}

// noteColor picks the channel base color and a saturation that drops as
// the note wraps into higher pages of the slot range.
func (sc *Scanline) noteColor(channel, note int) (theme.RGB, float64) {
	base := scanlineChannelColors[((channel-1)%16+16)%16]
	page := note / sc.nSlots
	sat := 1.0
	if page > 1 {
		sat = 1.0 - float64(page-1)*0.25
		if sat < 0.2 {
			sat = 0.2
		}
	}
	return base, sat
}

func (sc *Scanline) Draw(c display.Canvas, m display.Matrix, t float64) {
	if sc.nSlots == 0 || sc.W != m.Width() || sc.H != m.Height() {
		sc.Setup(m)
	}
	sc.lastT = t

	current := sc.phase(t)
	xScan := sc.phaseToX(current)

	for s := 0; s < sc.nSlots; s++ {
		// Drop trails that finished fading.
		live := sc.slots[s][:0]
		for _, tr := range sc.slots[s] {
			if !tr.released || t-tr.tOff < scanlineSustainSecs {
				live = append(live, tr)
			}
		}
		sc.slots[s] = live
		if len(live) == 0 {
			continue
		}

		y0 := (sc.nSlots - 1 - s) * sc.rowsPerSlot
		y1 := y0 + sc.rowsPerSlot
		if y1 > sc.H {
			y1 = sc.H
		}

		// Lower notes first so higher ones overdraw.
		sorted := append([]noteTrail(nil), live...)
		sort.Slice(sorted, func(a, b int) bool { return sorted[a].note < sorted[b].note })

		for _, tr := range sorted {
			brightness := 1.0
			if tr.released {
				brightness = 1.0 - (t-tr.tOff)/scanlineSustainSecs
				if brightness < 0 {
					brightness = 0
				}
			}
			base, sat := sc.noteColor(tr.channel, tr.note)
			col := base.Scale(brightness * sat)

			endPhase := current
			if tr.released {
				endPhase = tr.phaseOff
			}

			// Held across a bounce or longer spans the full width.
			diff := wrapUnit(endPhase - tr.phaseOn)
			if diff >= 0.5 {
				sc.segment(c, 0, sc.W-1, y0, y1, col)
				continue
			}

			xOn := sc.phaseToX(tr.phaseOn)
			xEnd := sc.phaseToX(endPhase)
			onRising := wrapUnit(tr.phaseOn) < 0.5
			endRising := wrapUnit(endPhase) < 0.5
			if onRising == endRising {
				sc.segment(c, xOn, xEnd, y0, y1, col)
			} else {
				edge := 0
				if onRising {
					edge = sc.W - 1
				}
				sc.segment(c, xOn, edge, y0, y1, col)
				sc.segment(c, edge, xEnd, y0, y1, col)
			}
		}
	}

	for y := 0; y < sc.H; y++ {
		c.SetPixel(xScan, y, 200, 255, 255)
	}
}

func (sc *Scanline) segment(c display.Canvas, x0, x1, y0, y1 int, col theme.RGB) {
	lo, hi := x0, x1
	if lo > hi {
		lo, hi = hi, lo
	}
	lo = clampInt(lo, 0, sc.W-1)
	hi = clampInt(hi, 0, sc.W-1)
	for y := y0; y < y1; y++ {
		for x := lo; x <= hi; x++ {
			c.SetPixel(x, y, col.R, col.G, col.B)
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
