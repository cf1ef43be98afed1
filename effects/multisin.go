package effects

import (
	"math"
	"math/rand"

	"psiwave-matrix/display"
	"psiwave-matrix/midi"
	"psiwave-matrix/theme"
)

// MultiSin stacks twelve sine layers, one per pitch class. Held notes
// light up their layer at full color; idle layers sit dim in the
// background. No CC parameters, notes only.
type MultiSin struct {
	Base

	heldCounts [multiSinLayers]int
	drift      [multiSinLayers]layerDrift
}

type layerDrift struct {
	phase, speed, f1, f2 float64
}

const multiSinLayers = 12

var multiSinPalette = [multiSinLayers]theme.RGB{
	{R: 255, G: 40, B: 40},
	{R: 255, G: 140, B: 0},
	{R: 255, G: 220, B: 0},
	{R: 160, G: 255, B: 0},
	{R: 0, G: 255, B: 70},
	{R: 0, G: 255, B: 180},
	{R: 0, G: 220, B: 255},
	{R: 0, G: 120, B: 255},
	{R: 40, G: 40, B: 255},
	{R: 140, G: 0, B: 255},
	{R: 255, G: 0, B: 200},
	{R: 255, G: 0, B: 90},
}

func NewMultiSin() *MultiSin {
	return &MultiSin{Base: Base{P: NewParams()}}
}

func (ms *MultiSin) Name() string { return "multi_sinwaves" }

func (ms *MultiSin) Setup(m display.Matrix) {
	ms.Base.Setup(m)
	ms.resetDrift()
}

func (ms *MultiSin) Activate() {
	ms.heldCounts = [multiSinLayers]int{}
	ms.resetDrift()
}

// resetDrift reseeds each layer's wander. Seeds are fixed per layer so
// the composition looks the same on every activation.
func (ms *MultiSin) resetDrift() {
	for i := range ms.drift {
		rng := rand.New(rand.NewSource(int64(i+1) * 15485863))
		ms.drift[i] = layerDrift{
			phase: uniformFrom(rng, -0.35, 0.35),
			speed: uniformFrom(rng, 0.08, 0.24),
			f1:    uniformFrom(rng, 0.03, 0.09),
			f2:    uniformFrom(rng, 0.02, 0.06),
		}
	}
}

func uniformFrom(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func (ms *MultiSin) HandleNote(n midi.NoteEvent) {
	if n.Note < 0 || n.Note > 127 {
		return
	}
	pc := n.Note % multiSinLayers
	if n.On {
		ms.heldCounts[pc]++
	} else if ms.heldCounts[pc] > 0 {
		ms.heldCounts[pc]--
	}
}

func (ms *MultiSin) Draw(c display.Canvas, m display.Matrix, t float64) {
	w := m.Width()
	h := m.Height()
	if ms.W != w || ms.H != h {
		ms.Setup(m)
	}

	yBottom := float64(h - 2)
	yTop := float64(maxInt(1, h/8))

	baseFreq := 0.12
	topFreqMult := 2.8
	baseAmp := math.Max(1.0, float64(h)*0.11)
	topAmpMult := 0.35

	speed1 := 2.6
	speed2 := 1.6
	centerX := 0.5 * float64(w-1)
	minPerspectiveScale := 0.28

	// Back to front so near layers paint over far ones.
	for i := multiSinLayers - 1; i >= 0; i-- {
		d := float64(i) / float64(multiSinLayers-1)
		// Exponent compresses far layers toward the horizon.
		yBase := lerpF(yBottom, yTop, math.Pow(d, 0.6))

		freq1 := baseFreq * lerpF(1.0, topFreqMult, d)
		amp1 := baseAmp * lerpF(1.0, topAmpMult, d)
		freq2 := freq1 * 2.2
		amp2 := amp1 * 0.22

		phaseLayer := d * 1.7
		dr := ms.drift[i]
		drift := math.Sin(t*dr.speed + dr.phase)
		freq1 *= 1.0 + dr.f1*drift
		freq2 *= 1.0 - dr.f2*drift
		phase1 := t*speed1 + phaseLayer + 0.25*drift
		phase2 := t*speed2 - phaseLayer*0.6 - 0.15*drift

		col := multiSinPalette[i]
		if ms.heldCounts[i] == 0 {
			col = col.Scale(lerpF(0.22, 0.05, d))
		}
		if col == (theme.RGB{}) {
			continue
		}

		invScale := 1.0 / lerpF(1.0, minPerspectiveScale, d)
		for x := 0; x < w; x++ {
			xProj := centerX + (float64(x)-centerX)*invScale
			y := yBase +
				amp1*math.Sin(freq1*xProj+phase1) +
				amp2*math.Sin(freq2*xProj+phase2)
			yi := int(math.Round(y))
			if yi >= 0 && yi < h {
				c.SetPixel(x, yi, col.R, col.G, col.B)
			}
		}
	}
}

func lerpF(a, b, t float64) float64 {
	return a + (b-a)*t
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
