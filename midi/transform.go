package midi

import "math"

// Unit maps a raw CC value (0..127) to 0..1, saturating at both ends.
func Unit(v int) float64 {
	if v <= 0 {
		return 0.0
	}
	if v >= 127 {
		return 1.0
	}
	return float64(v) / 127.0
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(x float64) float64 {
	if x <= 0.0 {
		return 0.0
	}
	if x >= 1.0 {
		return 1.0
	}
	return x
}

// sigmoid01 maps x in [0,1] to [0,1] through a logistic curve crossing 0.5
// at threshold. Endpoints are forced exact (x=0 -> 0, x=1 -> 1).
// steepness <= 0 falls back to linear.
func sigmoid01(x, threshold, steepness float64) float64 {
	x = clamp01(x)
	if x <= 0.0 {
		return 0.0
	}
	if x >= 1.0 {
		return 1.0
	}
	if !(steepness > 0.0) {
		return x
	}
	z := steepness * (x - clamp01(threshold))
	// two-branch form keeps the exponent argument non-positive
	if z >= 0.0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1.0 + ez)
}

// Transform maps a resolved 0..1 unit value into a parameter's range.
type Transform interface {
	Apply(u float64) float64
}

// IdentityTransform passes the 0..1 value through unchanged.
type IdentityTransform struct{}

func (IdentityTransform) Apply(u float64) float64 { return u }

// LinearTransform maps 0..1 linearly to [Low, High]. High < Low inverts
// the control direction.
type LinearTransform struct {
	Low, High float64
}

func (t LinearTransform) Apply(u float64) float64 { return lerp(t.Low, t.High, u) }

// SigmoidTransform applies a sigmoid curve then maps to [Low, High].
type SigmoidTransform struct {
	Low, High float64
	Threshold float64
	Steepness float64
}

func (t SigmoidTransform) Apply(u float64) float64 {
	return lerp(t.Low, t.High, sigmoid01(u, t.Threshold, t.Steepness))
}

// RawCCTransform recovers the raw 0..127 control byte from the unit value,
// for targets that want the raw CC domain.
type RawCCTransform struct{}

func (RawCCTransform) Apply(u float64) float64 { return u * 127.0 }
