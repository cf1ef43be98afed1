package midi

// ParamSink is the uniform capability every effect exposes for resolved
// control values. An error means the sink rejected the parameter name;
// the router logs it and moves on.
type ParamSink interface {
	SetParam(name string, value float64) error
}

// Binding declaratively links a set of CC numbers to one parameter on one
// target via a transform. Many-to-many: several bindings may watch the
// same control, and one binding may watch several controls. The binding's
// resolver state is mutable for the binding's lifetime; everything else is
// fixed at construction.
type Binding struct {
	Controls  []int
	Target    ParamSink
	Param     string
	Transform Transform
	Resolver  *Resolver
}

// NewBinding creates a binding with a built-in resolution strategy. A nil
// transform defaults to identity.
func NewBinding(controls []int, target ParamSink, param string, tr Transform, strategy Strategy) *Binding {
	return newBinding(controls, target, param, tr, NewResolver(strategy))
}

// NewCustomBinding creates a binding whose resolver aggregates via fn.
func NewCustomBinding(controls []int, target ParamSink, param string, tr Transform, fn CustomFunc) *Binding {
	return newBinding(controls, target, param, tr, NewCustomResolver(fn))
}

func newBinding(controls []int, target ParamSink, param string, tr Transform, r *Resolver) *Binding {
	if tr == nil {
		tr = IdentityTransform{}
	}
	return &Binding{
		Controls:  append([]int(nil), controls...),
		Target:    target,
		Param:     param,
		Transform: tr,
		Resolver:  r,
	}
}
