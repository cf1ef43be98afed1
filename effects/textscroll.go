package effects

import (
	"math"

	"psiwave-matrix/display"
	"psiwave-matrix/theme"
)

// TextScroll scrolls a message across the panel. The message is rendered
// once into a bitmap mask from the embedded font; color morphs from white
// into a slow hue cycle as the color CC comes up.
//
// Parameters:
//
//	speed  scroll speed multiplier
//	color  raw CC 0..127, white -> hue cycle
type TextScroll struct {
	Base

	message string
	scale   int

	mask  []bool
	maskW int
	maskH int

	extPhase    float64
	hasExtPhase bool
}

const (
	textBasePxPerSec = 2.4
	textDefaultMsg   = "ψ~ PsiWave ψ~"
)

func NewTextScroll() *TextScroll {
	p := NewParams()
	p.Register("speed", 1.0)
	p.Register("color", 0.0)
	return &TextScroll{Base: Base{P: p}, message: textDefaultMsg, scale: 2}
}

func (ts *TextScroll) Name() string { return "text_scroll" }

func (ts *TextScroll) Setup(m display.Matrix) {
	ts.Base.Setup(m)
	ts.renderMessage()
}

// SetText replaces the scrolled message.
func (ts *TextScroll) SetText(msg string) {
	if msg == "" {
		msg = " "
	}
	ts.message = msg
	ts.mask = nil
}

// SetScrollPhase pins the scroll position in pixels, used for tempo sync.
// ClearScrollPhase returns control to the time-based scroller.
func (ts *TextScroll) SetScrollPhase(px float64) {
	ts.extPhase = px
	ts.hasExtPhase = true
}

func (ts *TextScroll) ClearScrollPhase() {
	ts.hasExtPhase = false
}

// renderMessage rasterizes the message once at the current scale.
func (ts *TextScroll) renderMessage() {
	runes := []rune(ts.message)
	cellW := (fontWidth + fontSpacing) * ts.scale
	ts.maskW = len(runes) * cellW
	ts.maskH = fontHeight * ts.scale
	ts.mask = make([]bool, ts.maskW*ts.maskH)

	for ci, r := range runes {
		g := glyph(r)
		for row := 0; row < fontHeight; row++ {
			bits := g[row]
			for col := 0; col < fontWidth; col++ {
				if bits&(1<<(fontWidth-1-col)) == 0 {
					continue
				}
				x0 := ci*cellW + col*ts.scale
				y0 := row * ts.scale
				for dy := 0; dy < ts.scale; dy++ {
					for dx := 0; dx < ts.scale; dx++ {
						ts.mask[(y0+dy)*ts.maskW+x0+dx] = true
					}
				}
			}
		}
	}
}

func (ts *TextScroll) color(t float64) theme.RGB {
	cc := ts.GetParam("color")
	u := clampUnit(cc / 127.0)
	hue := math.Mod(t*0.5+cc/127.0, 1.0)
	return theme.Lerp(theme.RGB{R: 255, G: 255, B: 255}, theme.Hue(hue), u)
}

func (ts *TextScroll) Draw(c display.Canvas, m display.Matrix, t float64) {
	w := m.Width()
	h := m.Height()
	if ts.mask == nil || ts.W != w || ts.H != h {
		ts.Setup(m)
	}

	phase := t * textBasePxPerSec * ts.GetParam("speed")
	if ts.hasExtPhase {
		phase = ts.extPhase
	}

	col := ts.color(t)
	cycle := ts.maskW + w
	srcX := int(phase) % cycle
	if srcX < 0 {
		srcX += cycle
	}
	y0 := (h - ts.maskH) / 2
	if y0 < 0 {
		y0 = 0
	}

	for dy := 0; dy < ts.maskH; dy++ {
		y := y0 + dy
		if y >= h {
			break
		}
		for dx := 0; dx < w; dx++ {
			virtual := srcX + dx
			if virtual >= cycle {
				virtual -= cycle
			}
			if virtual < ts.maskW && ts.mask[dy*ts.maskW+virtual] {
				c.SetPixel(dx, y, col.R, col.G, col.B)
			}
		}
	}
}
