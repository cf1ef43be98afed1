package midi

import (
	"fmt"
	"sort"
	"strings"

	"psiwave-matrix/debug"
)

// LogMode controls which CC traffic the router reports.
type LogMode string

const (
	LogNone   LogMode = "none"
	LogMapped LogMode = "mapped"
	LogAll    LogMode = "all"
	LogBoth   LogMode = "both"
)

// Router owns all bindings and fans incoming CC batches out to them.
// Bindings are added at startup; the control-number index is derived on
// Add and read-only during Process.
type Router struct {
	bindings  []*Binding
	byControl map[int][]*Binding
	logMode   LogMode
}

// NewRouter creates an empty router.
func NewRouter(mode LogMode) *Router {
	return &Router{
		byControl: make(map[int][]*Binding),
		logMode:   mode,
	}
}

// Add registers a binding and indexes its watched control numbers. A
// control listed twice on one binding is indexed once.
func (r *Router) Add(b *Binding) {
	r.bindings = append(r.bindings, b)
	seen := make(map[int]bool, len(b.Controls))
	for _, n := range b.Controls {
		if seen[n] {
			continue
		}
		seen[n] = true
		r.byControl[n] = append(r.byControl[n], b)
	}
}

// MappedControls returns the sorted control numbers with at least one
// binding.
func (r *Router) MappedControls() []int {
	out := make([]int, 0, len(r.byControl))
	for n := range r.byControl {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Process feeds a CC batch through the bindings and pushes resolved,
// transformed values to the target sinks. Bindings untouched by this batch
// are left alone; bindings with no resolvable value yet are skipped. A
// sink rejecting a parameter never aborts the batch.
func (r *Router) Process(batch []CCEvent) {
	if len(batch) == 0 {
		return
	}
	logAll := r.logMode == LogAll || r.logMode == LogBoth
	logMapped := r.logMode == LogMapped || r.logMode == LogBoth

	touched := make(map[*Binding]bool)
	mappedCount := 0
	mappedControls := make(map[int]bool)

	for _, cc := range batch {
		watchers := r.byControl[cc.Control]
		if logAll {
			tag := "unmapped"
			if len(watchers) > 0 {
				tag = "mapped"
			}
			fmt.Printf("[midi] %s t=%7.3fs ch=%2d cc=%3d val=%3d\n",
				tag, cc.T, cc.Channel, cc.Control, cc.Value)
		}
		if len(watchers) == 0 {
			continue
		}
		mappedCount++
		mappedControls[cc.Control] = true
		for _, b := range watchers {
			b.Resolver.Feed(cc)
			touched[b] = true
		}
	}

	if logMapped && len(touched) > 0 {
		controls := make([]int, 0, len(mappedControls))
		for n := range mappedControls {
			controls = append(controls, n)
		}
		sort.Ints(controls)
		plural := ""
		if mappedCount != 1 {
			plural = "s"
		}
		fmt.Printf("[midi] mapped CC detected (%d msg%s) controls=%v\n",
			mappedCount, plural, controls)
	}

	// Resolve in declared binding order.
	for _, b := range r.bindings {
		if !touched[b] {
			continue
		}
		unit, ok := b.Resolver.Resolve()
		if !ok {
			continue
		}
		value := b.Transform.Apply(unit)
		if err := b.Target.SetParam(b.Param, value); err != nil {
			debug.Log("router", "set param %s: %v", b.Param, err)
			continue
		}
		if logMapped {
			fmt.Printf("[midi] %s -> %.3f\n", b.Param, value)
		}
	}
}

// Describe returns a one-line summary of all bindings for startup logging.
func (r *Router) Describe() string {
	parts := make([]string, 0, len(r.bindings))
	for _, b := range r.bindings {
		cs := append([]int(nil), b.Controls...)
		sort.Ints(cs)
		parts = append(parts, fmt.Sprintf("%s=cc%v", b.Param, cs))
	}
	return strings.Join(parts, " ")
}
