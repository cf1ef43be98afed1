// Package theme holds the shared color math for the effects: the RGB
// pixel type, blending helpers, and the star tint palette.
package theme

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGB is one display pixel, 8 bits per channel.
type RGB struct {
	R, G, B uint8
}

// Scale dims the color by k, clamped to [0, 1].
func (c RGB) Scale(k float64) RGB {
	if k < 0 {
		k = 0
	} else if k > 1 {
		k = 1
	}
	return RGB{
		R: uint8(float64(c.R) * k),
		G: uint8(float64(c.G) * k),
		B: uint8(float64(c.B) * k),
	}
}

// Max blends two colors by taking the per-channel maximum. Overlapping
// additive effects use this so crossings brighten instead of overwrite.
func (c RGB) Max(o RGB) RGB {
	return RGB{R: max8(c.R, o.R), G: max8(c.G, o.G), B: max8(c.B, o.B)}
}

func max8(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

// Lerp blends from c to o in RGB space, t in [0, 1].
func Lerp(c, o RGB, t float64) RGB {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	a := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	b := colorful.Color{R: float64(o.R) / 255, G: float64(o.G) / 255, B: float64(o.B) / 255}
	return fromColorful(a.BlendRgb(b, t))
}

// Hue returns a fully saturated color at hue h in [0, 1), wrapping.
func Hue(h float64) RGB {
	h = math.Mod(h, 1)
	if h < 0 {
		h++
	}
	return fromColorful(colorful.Hsv(h*360, 1, 1))
}

func fromColorful(c colorful.Color) RGB {
	return RGB{
		R: uint8(clamp01(c.R) * 255),
		G: uint8(clamp01(c.G) * 255),
		B: uint8(clamp01(c.B) * 255),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// StarKind selects the tint applied to a star's brightness.
type StarKind int

const (
	StarWhite StarKind = iota
	StarBlue
	StarCyan
	StarYellow
	StarOrange
	StarRed
	NumStarKinds
)

// StarTint maps a brightness level to the star's color.
func StarTint(kind StarKind, brightness int) RGB {
	b := brightness
	if b < 0 {
		b = 0
	} else if b > 255 {
		b = 255
	}
	v := uint8(b)
	switch kind {
	case StarBlue:
		return RGB{v / 3, v / 3, v}
	case StarCyan:
		return RGB{v / 3, v, v}
	case StarYellow:
		return RGB{v, v, v / 3}
	case StarOrange:
		return RGB{v, v / 2, v / 6}
	case StarRed:
		return RGB{v, v / 6, v / 6}
	default:
		return RGB{v, v, v}
	}
}
