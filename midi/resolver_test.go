package midi

import (
	"math"
	"testing"
)

func cc(ch, control, value int, t float64) CCEvent {
	return CCEvent{Channel: ch, Control: control, Value: value, T: t}
}

func TestResolverNoValueBeforeFirstFeed(t *testing.T) {
	r := NewResolver(MostRecentOfAny)
	if _, ok := r.Resolve(); ok {
		t.Error("resolver produced a value before any feed")
	}

	r = NewResolver(AverageOfLastPerChannel)
	if _, ok := r.Resolve(); ok {
		t.Error("average resolver produced a value before any feed")
	}
}

func TestMostRecentOfAnyOutOfOrderArrival(t *testing.T) {
	r := NewResolver(MostRecentOfAny)
	// Out-of-order arrival: the t=2.0 value must win.
	r.Feed(cc(1, 5, 10, 1.0))
	r.Feed(cc(2, 5, 80, 2.0))
	r.Feed(cc(3, 5, 5, 1.5))

	v, ok := r.Resolve()
	if !ok {
		t.Fatal("no value")
	}
	want := 80.0 / 127.0
	if math.Abs(v-want) > 1e-9 {
		t.Errorf("resolved %f, want %f (value 80 at t=2.0)", v, want)
	}
}

func TestMostRecentOfAnyTieLastWriteWins(t *testing.T) {
	r := NewResolver(MostRecentOfAny)
	r.Feed(cc(1, 5, 40, 3.0))
	r.Feed(cc(2, 5, 90, 3.0)) // same timestamp: replace on >=

	v, _ := r.Resolve()
	if math.Abs(v-90.0/127.0) > 1e-9 {
		t.Errorf("resolved %f, want unit(90)", v)
	}
}

func TestMostRecentOfAnySaturation(t *testing.T) {
	r := NewResolver(MostRecentOfAny)
	r.Feed(cc(1, 5, 0, 1.0))
	if v, _ := r.Resolve(); v != 0.0 {
		t.Errorf("unit(0) = %f, want 0", v)
	}
	r.Feed(cc(1, 5, 127, 2.0))
	if v, _ := r.Resolve(); v != 1.0 {
		t.Errorf("unit(127) = %f, want 1", v)
	}
}

func TestAverageOfLastPerChannel(t *testing.T) {
	r := NewResolver(AverageOfLastPerChannel)
	r.Feed(cc(1, 5, 0, 1.0))
	r.Feed(cc(2, 5, 127, 2.0))

	v, ok := r.Resolve()
	if !ok {
		t.Fatal("no value")
	}
	// (0+127)/2 rounds to 64; 64/127 is 0.5 within rounding
	if math.Abs(v-0.5) > 0.01 {
		t.Errorf("resolved %f, want ~0.5", v)
	}
}

func TestAverageOverwritesPerChannel(t *testing.T) {
	r := NewResolver(AverageOfLastPerChannel)
	r.Feed(cc(1, 5, 0, 1.0))
	r.Feed(cc(1, 5, 127, 2.0)) // same channel: overwrite, not accumulate

	v, _ := r.Resolve()
	if v != 1.0 {
		t.Errorf("resolved %f, want 1.0 (single channel, last value 127)", v)
	}
}

func TestCustomStrategy(t *testing.T) {
	r := NewCustomResolver(func(perChannel map[int]int) float64 {
		// max of last per channel
		max := 0
		for _, v := range perChannel {
			if v > max {
				max = v
			}
		}
		return float64(max) / 127.0
	})
	r.Feed(cc(1, 5, 30, 1.0))
	r.Feed(cc(2, 5, 100, 2.0))

	v, ok := r.Resolve()
	if !ok {
		t.Fatal("no value")
	}
	if math.Abs(v-100.0/127.0) > 1e-9 {
		t.Errorf("custom resolved %f, want unit(100)", v)
	}
}

func TestCustomStrategyClamped(t *testing.T) {
	r := NewCustomResolver(func(perChannel map[int]int) float64 { return 3.5 })
	r.Feed(cc(1, 5, 10, 1.0))
	if v, _ := r.Resolve(); v != 1.0 {
		t.Errorf("custom result not clamped: %f", v)
	}
}

func TestResolverReset(t *testing.T) {
	r := NewResolver(MostRecentOfAny)
	r.Feed(cc(1, 5, 64, 1.0))
	r.Reset()
	if _, ok := r.Resolve(); ok {
		t.Error("resolver kept a value across Reset")
	}
	// A feed with an earlier timestamp than the pre-reset one must win now.
	r.Feed(cc(1, 5, 12, 0.5))
	v, ok := r.Resolve()
	if !ok || math.Abs(v-12.0/127.0) > 1e-9 {
		t.Errorf("post-reset resolve: %f ok=%v, want unit(12)", v, ok)
	}
}
