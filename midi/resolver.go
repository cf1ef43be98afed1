package midi

import "math"

// Strategy selects how a Resolver folds accumulated CC state into a single
// unit value.
type Strategy int

const (
	// MostRecentOfAny returns the value with the latest timestamp seen,
	// regardless of channel. Timestamp ties go to the last write.
	MostRecentOfAny Strategy = iota
	// AverageOfLastPerChannel returns the mean of the most recent value
	// on each channel that has reported.
	AverageOfLastPerChannel
	// StrategyCustom delegates to a caller-supplied aggregation func.
	StrategyCustom
)

// CustomFunc folds the last raw value per channel into a unit value.
// The result is clamped to [0,1].
type CustomFunc func(perChannel map[int]int) float64

// Resolver maintains per-channel CC state for one binding and resolves it
// to a single 0..1 unit value. Owned by exactly one Binding; all methods
// are called from the render-loop goroutine.
type Resolver struct {
	strategy Strategy
	custom   CustomFunc

	perChannel map[int]int
	lastValue  int
	lastT      float64
	hasValue   bool
}

// NewResolver creates a resolver with a built-in strategy.
func NewResolver(s Strategy) *Resolver {
	return &Resolver{strategy: s, perChannel: make(map[int]int)}
}

// NewCustomResolver creates a resolver that aggregates via fn.
func NewCustomResolver(fn CustomFunc) *Resolver {
	return &Resolver{strategy: StrategyCustom, custom: fn, perChannel: make(map[int]int)}
}

// Feed ingests a CC message that matched one of the binding's watched
// control numbers.
func (r *Resolver) Feed(cc CCEvent) {
	r.perChannel[cc.Channel] = cc.Value
	if !r.hasValue || cc.T >= r.lastT {
		r.lastValue = cc.Value
		r.lastT = cc.T
		r.hasValue = true
	}
}

// Resolve computes a unit value from accumulated state. ok is false until
// at least one event has been fed; callers must not push a default value
// before first data arrival.
func (r *Resolver) Resolve() (value float64, ok bool) {
	if !r.hasValue {
		return 0, false
	}

	switch r.strategy {
	case StrategyCustom:
		if r.custom != nil {
			snap := make(map[int]int, len(r.perChannel))
			for ch, v := range r.perChannel {
				snap[ch] = v
			}
			return clamp01(r.custom(snap)), true
		}
	case AverageOfLastPerChannel:
		if len(r.perChannel) == 0 {
			return 0, false
		}
		sum := 0
		for _, v := range r.perChannel {
			sum += v
		}
		avg := float64(sum) / float64(len(r.perChannel))
		return Unit(int(math.Round(avg))), true
	}

	return Unit(r.lastValue), true
}

// Reset clears all accumulated state.
func (r *Resolver) Reset() {
	for ch := range r.perChannel {
		delete(r.perChannel, ch)
	}
	r.lastValue = 0
	r.lastT = 0
	r.hasValue = false
}
