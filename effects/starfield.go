package effects

import (
	"math"
	"math/rand"

	"psiwave-matrix/debug"
	"psiwave-matrix/display"
	"psiwave-matrix/theme"
)

// Starfield flies stars outward from the center of the panel.
//
// Parameters:
//
//	speed         movement multiplier (0.5..4 typical)
//	color_amount  0..1 fraction of stars that respawn tinted
type Starfield struct {
	Base

	rng   *rand.Rand
	stars []star

	lastT    float64
	hasLastT bool

	spawnKind    theme.StarKind
	hasSpawnKind bool
	debugOn      bool
}

type star struct {
	x, y         float64
	brightness   int
	speed        float64
	twinkleSpeed float64
	twinklePhase float64
	kind         theme.StarKind
}

const starfieldCount = 100

func NewStarfield() *Starfield {
	p := NewParams()
	p.Register("speed", 1.0)
	p.Register("color_amount", 0.0)
	return &Starfield{
		Base: Base{P: p},
		rng:  rand.New(rand.NewSource(rand.Int63())),
	}
}

func (s *Starfield) Name() string { return "starfield" }

func (s *Starfield) Setup(m display.Matrix) {
	s.Base.Setup(m)
	s.stars = make([]star, starfieldCount)
	for i := range s.stars {
		s.respawn(&s.stars[i])
	}
}

// Activate drops the stale frame time so switching back never produces a
// huge dt jump.
func (s *Starfield) Activate() {
	s.hasLastT = false
}

// SetSpawnColorType forces the tint used for respawning colored stars,
// driven from clock beat edges.
func (s *Starfield) SetSpawnColorType(kind theme.StarKind) {
	s.spawnKind = kind
	s.hasSpawnKind = true
}

func (s *Starfield) SetDebug(on bool) {
	s.debugOn = on
}

func (s *Starfield) respawn(st *star) {
	cx := float64(s.W) / 2
	cy := float64(s.H) / 2
	st.x = cx + s.uniform(-15, 15)
	st.y = cy + s.uniform(-12, 12)
	st.brightness = 50 + s.rng.Intn(206)
	st.speed = s.uniform(1.5, 4.0)
	st.twinkleSpeed = s.uniform(0.02, 0.08)
	st.twinklePhase = s.uniform(0, 2*math.Pi)

	if s.rng.Float64() < clampUnit(s.GetParam("color_amount")) {
		if s.hasSpawnKind {
			st.kind = s.spawnKind
		} else {
			st.kind = theme.StarKind(s.rng.Intn(int(theme.NumStarKinds)))
		}
	} else {
		st.kind = theme.StarWhite
	}
}

func (s *Starfield) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func (s *Starfield) Draw(c display.Canvas, m display.Matrix, t float64) {
	if len(s.stars) == 0 || s.W != m.Width() || s.H != m.Height() {
		s.Setup(m)
	}

	dt := 0.0
	if s.hasLastT {
		dt = t - s.lastT
		if dt < 0 {
			dt = 0
		}
	}
	s.lastT = t
	s.hasLastT = true

	speed := s.GetParam("speed")
	cx := float64(s.W) / 2
	cy := float64(s.H) / 2

	colored := 0
	for i := range s.stars {
		st := &s.stars[i]

		dx := st.x - cx
		dy := st.y - cy
		if math.Abs(dx) > 0.1 || math.Abs(dy) > 0.1 {
			// Manhattan length is close enough here and cheaper than sqrt.
			length := math.Abs(dx) + math.Abs(dy)
			st.x += (dx / length) * st.speed * speed * dt * 2.5
			st.y += (dy / length) * st.speed * speed * dt * 2.5
		}
		if st.x < 0 || st.x >= float64(s.W) || st.y < 0 || st.y >= float64(s.H) {
			s.respawn(st)
		}
		st.twinklePhase += st.twinkleSpeed * 0.5

		if st.kind != theme.StarWhite {
			colored++
		}

		twinkle := 0.5 + 0.5*math.Sin(st.twinklePhase)
		col := theme.StarTint(st.kind, int(float64(st.brightness)*twinkle))
		c.SetPixel(int(st.x), int(st.y), col.R, col.G, col.B)
	}

	if s.debugOn {
		debug.LogEvery(120, "starfield", "stars=%d colored=%d color_amount=%.2f",
			len(s.stars), colored, s.GetParam("color_amount"))
	}
}
