// Package effects contains the visual effects drawn on the matrix. Each
// effect exposes named parameters; the MIDI router pushes resolved values
// into them, so effects never see CC numbers.
package effects

import (
	"fmt"
	"math"

	"psiwave-matrix/display"
	"psiwave-matrix/midi"
)

// Effect is one visual program.
//
// Lifecycle, driven by the run loop:
//
//	Setup(matrix)            once, before the first frame
//	Activate()               each time the effect is switched to
//	Draw(canvas, matrix, t)  every frame
//	HandleNote(note)         for each incoming note event
type Effect interface {
	Name() string
	Setup(m display.Matrix)
	Activate()
	Draw(c display.Canvas, m display.Matrix, t float64)
	HandleNote(n midi.NoteEvent)
	SetParam(name string, value float64) error
	GetParam(name string) float64
}

type param struct {
	value, def float64
}

// Params is a named parameter registry with per-parameter defaults.
type Params struct {
	vals map[string]*param
}

func NewParams() *Params {
	return &Params{vals: make(map[string]*param)}
}

// Register declares a parameter and its default value.
func (p *Params) Register(name string, def float64) {
	p.vals[name] = &param{value: def, def: def}
}

// Set updates a parameter; unknown names are an error so routing typos
// show up in the log instead of vanishing.
func (p *Params) Set(name string, value float64) error {
	pr, ok := p.vals[name]
	if !ok {
		return fmt.Errorf("unknown param %q", name)
	}
	if math.IsNaN(value) {
		return fmt.Errorf("param %q: NaN", name)
	}
	pr.value = value
	return nil
}

// Get reads a parameter, 0 for unknown names.
func (p *Params) Get(name string) float64 {
	if pr, ok := p.vals[name]; ok {
		return pr.value
	}
	return 0
}

// Reset restores every parameter to its default.
func (p *Params) Reset() {
	for _, pr := range p.vals {
		pr.value = pr.def
	}
}

// Base carries the dimensions and parameter registry shared by every
// effect. Embed it and override what the effect needs.
type Base struct {
	W, H int
	P    *Params
}

func (b *Base) Setup(m display.Matrix) {
	b.W = m.Width()
	b.H = m.Height()
}

func (b *Base) Activate() {}

func (b *Base) HandleNote(midi.NoteEvent) {}

func (b *Base) SetParam(name string, value float64) error {
	return b.P.Set(name, value)
}

func (b *Base) GetParam(name string) float64 {
	return b.P.Get(name)
}
