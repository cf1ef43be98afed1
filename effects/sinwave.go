package effects

import (
	"math"

	"psiwave-matrix/display"
	"psiwave-matrix/midi"
	"psiwave-matrix/theme"
)

// Sinwave draws a travelling sine wave with a vertical bar overlay. The
// wave phase normally comes from an internal integrator so speed changes
// never jump the wave; clock sync can override it with an external phase.
//
// Parameters:
//
//	speed        speed multiplier (0..2 typical)
//	wavelength   wavelength multiplier (lower = shorter)
//	color        raw CC 0..127 morphing blue -> red
//	phase_offset manual phase offset in radians
type Sinwave struct {
	Base

	state []theme.RGB

	phaseAccum float64
	lastT      float64
	hasLastT   bool

	extPhase    float64
	hasExtPhase bool
}

var (
	sinwaveColor1 = theme.RGB{R: 50, G: 50, B: 255}
	sinwaveColor2 = theme.RGB{R: 255, G: 50, B: 50}
)

const (
	sinwaveBaseSpeed = 5.0
	sinwaveBaseFreq  = 0.15
	sinwaveMaxDT     = 0.10
	sinwaveAmplitude = 9.0
	sinwaveWidth     = 4
	sinwaveDim       = 0.6
	sinwaveBarX      = 0.3
)

func NewSinwave() *Sinwave {
	p := NewParams()
	p.Register("speed", 1.0)
	p.Register("wavelength", 1.0)
	p.Register("color", 0.0)
	p.Register("phase_offset", 0.0)
	return &Sinwave{Base: Base{P: p}}
}

func (s *Sinwave) Name() string { return "sinwave" }

func (s *Sinwave) Setup(m display.Matrix) {
	s.Base.Setup(m)
	s.state = make([]theme.RGB, s.W*s.H)
}

func (s *Sinwave) Activate() {
	s.phaseAccum = 0
	s.hasLastT = false
	s.hasExtPhase = false
}

// SetExternalPhase overrides the internal phase integrator, used for
// tempo sync. ClearExternalPhase hands control back; the integrator
// resumes from its old value without a visual jump.
func (s *Sinwave) SetExternalPhase(phase float64) {
	s.extPhase = phase
	s.hasExtPhase = true
}

func (s *Sinwave) ClearExternalPhase() {
	s.hasExtPhase = false
	s.hasLastT = false
}

// SetWavelengthMult sets the wavelength directly, bypassing the CC
// mapping, for spatial tempo sync.
func (s *Sinwave) SetWavelengthMult(mult float64) {
	if mult < 0.01 {
		mult = 0.01
	}
	s.P.Set("wavelength", mult)
}

func (s *Sinwave) HandleNote(midi.NoteEvent) {}

func (s *Sinwave) Draw(c display.Canvas, m display.Matrix, t float64) {
	if len(s.state) != m.Width()*m.Height() {
		s.Setup(m)
	}

	morph := clampUnit(s.GetParam("color") / 127.0)
	col := theme.Lerp(sinwaveColor1, sinwaveColor2, morph)

	for i := range s.state {
		s.state[i] = theme.RGB{}
	}

	var phase float64
	if s.hasExtPhase {
		phase = s.extPhase
	} else {
		dt := 0.0
		if s.hasLastT {
			dt = t - s.lastT
			if dt < 0 {
				dt = 0
			} else if dt > sinwaveMaxDT {
				dt = sinwaveMaxDT
			}
		}
		s.lastT = t
		s.hasLastT = true
		s.phaseAccum += sinwaveBaseSpeed * s.GetParam("speed") * dt
		phase = s.phaseAccum
	}

	wl := s.GetParam("wavelength")
	if wl < 0.0001 {
		wl = 0.0001
	}
	freq := sinwaveBaseFreq / wl

	s.drawWave(c, phase+s.GetParam("phase_offset"), freq, col)
	s.drawBar(c, col)
}

func (s *Sinwave) drawWave(c display.Canvas, phase, freq float64, col theme.RGB) {
	vertOffset := float64(s.H)/4 + sinwaveWidth - 2
	for x := 0; x < s.W; x++ {
		yCenter := int(math.Round(sinwaveAmplitude*math.Sin(freq*float64(x)+phase) + vertOffset))
		s.put(c, x, yCenter, col, false)

		soft := col
		for w := 1; w < sinwaveWidth; w++ {
			soft = soft.Scale(sinwaveDim)
			s.put(c, x, yCenter-w, soft, false)
			s.put(c, x, yCenter+w, soft, false)
		}
	}
}

func (s *Sinwave) drawBar(c display.Canvas, col theme.RGB) {
	xCenter := int(sinwaveBarX * float64(s.W))
	for y := 0; y < s.H; y++ {
		s.put(c, xCenter, y, col, true)

		soft := col
		for w := 1; w < sinwaveWidth; w++ {
			soft = soft.Scale(sinwaveDim)
			s.put(c, xCenter+w, y, soft, true)
			s.put(c, xCenter-w, y, soft, true)
		}
	}
}

// put writes one pixel through the shadow state so the bar can max-blend
// over the wave instead of overwriting it.
func (s *Sinwave) put(c display.Canvas, x, y int, col theme.RGB, blend bool) {
	if x < 0 || x >= s.W || y < 0 || y >= s.H {
		return
	}
	i := y*s.W + x
	if blend {
		col = s.state[i].Max(col)
	}
	s.state[i] = col
	c.SetPixel(x, y, col.R, col.G, col.B)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
