package midi

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

// testSink records SetParam calls and can reject named parameters.
type testSink struct {
	values map[string][]float64
	reject map[string]bool
}

func newTestSink() *testSink {
	return &testSink{values: make(map[string][]float64), reject: make(map[string]bool)}
}

func (s *testSink) SetParam(name string, value float64) error {
	if s.reject[name] {
		return fmt.Errorf("unknown param %q", name)
	}
	s.values[name] = append(s.values[name], value)
	return nil
}

func (s *testSink) last(name string) (float64, bool) {
	vs := s.values[name]
	if len(vs) == 0 {
		return 0, false
	}
	return vs[len(vs)-1], true
}

func TestRouterManyToMany(t *testing.T) {
	sink := newTestSink()
	r := NewRouter(LogNone)
	// Two bindings watching the same control resolve independently.
	r.Add(NewBinding([]int{5}, sink, "speed", LinearTransform{Low: 0, High: 2}, MostRecentOfAny))
	r.Add(NewBinding([]int{5}, sink, "color", RawCCTransform{}, MostRecentOfAny))

	r.Process([]CCEvent{cc(1, 5, 127, 1.0)})

	if v, ok := sink.last("speed"); !ok || math.Abs(v-2.0) > 1e-9 {
		t.Errorf("speed = %v ok=%v, want 2.0", v, ok)
	}
	if v, ok := sink.last("color"); !ok || math.Abs(v-127.0) > 1e-9 {
		t.Errorf("color = %v ok=%v, want 127", v, ok)
	}
}

func TestRouterBindingWatchingMultipleControls(t *testing.T) {
	sink := newTestSink()
	r := NewRouter(LogNone)
	r.Add(NewBinding([]int{10, 11}, sink, "mix", nil, MostRecentOfAny))

	r.Process([]CCEvent{cc(1, 10, 64, 1.0)})
	r.Process([]CCEvent{cc(1, 11, 127, 2.0)})

	if v, ok := sink.last("mix"); !ok || v != 1.0 {
		t.Errorf("mix = %v ok=%v, want 1.0 from cc 11", v, ok)
	}
}

func TestRouterIdempotentReplay(t *testing.T) {
	sink := newTestSink()
	r := NewRouter(LogNone)
	r.Add(NewBinding([]int{7}, sink, "level", nil, MostRecentOfAny))

	batch := []CCEvent{cc(1, 7, 30, 1.0), cc(1, 7, 90, 2.0)}
	r.Process(batch)
	first, _ := sink.last("level")
	r.Process(batch)
	second, _ := sink.last("level")

	if first != second {
		t.Errorf("replay changed the resolved value: %f then %f", first, second)
	}
	if math.Abs(first-90.0/127.0) > 1e-9 {
		t.Errorf("resolved %f, want unit(90)", first)
	}
}

func TestRouterUntouchedBindingNotReinvoked(t *testing.T) {
	sink := newTestSink()
	r := NewRouter(LogNone)
	r.Add(NewBinding([]int{1}, sink, "a", nil, MostRecentOfAny))
	r.Add(NewBinding([]int{2}, sink, "b", nil, MostRecentOfAny))

	r.Process([]CCEvent{cc(1, 1, 64, 1.0)})
	r.Process([]CCEvent{cc(1, 2, 64, 2.0)})

	// "a" was only touched by the first batch: one push, not two.
	if n := len(sink.values["a"]); n != 1 {
		t.Errorf("sink calls for a: got %d, want 1", n)
	}
	if n := len(sink.values["b"]); n != 1 {
		t.Errorf("sink calls for b: got %d, want 1", n)
	}
}

func TestRouterUnmappedControlIgnored(t *testing.T) {
	sink := newTestSink()
	r := NewRouter(LogNone)
	r.Add(NewBinding([]int{5}, sink, "speed", nil, MostRecentOfAny))

	r.Process([]CCEvent{cc(1, 99, 64, 1.0)})

	if len(sink.values) != 0 {
		t.Errorf("unmapped control reached a sink: %v", sink.values)
	}
}

func TestRouterSinkRejectionDoesNotAbortBatch(t *testing.T) {
	sink := newTestSink()
	sink.reject["broken"] = true
	r := NewRouter(LogNone)
	r.Add(NewBinding([]int{5}, sink, "broken", nil, MostRecentOfAny))
	r.Add(NewBinding([]int{5}, sink, "fine", nil, MostRecentOfAny))

	r.Process([]CCEvent{cc(1, 5, 127, 1.0)})

	if _, ok := sink.last("fine"); !ok {
		t.Error("binding after a rejecting sink was not processed")
	}
}

func TestRouterEmptyBatchNoop(t *testing.T) {
	sink := newTestSink()
	r := NewRouter(LogNone)
	r.Add(NewBinding([]int{5}, sink, "speed", nil, MostRecentOfAny))
	r.Process(nil)
	r.Process([]CCEvent{})
	if len(sink.values) != 0 {
		t.Errorf("empty batch reached a sink: %v", sink.values)
	}
}

func TestRouterMappedControls(t *testing.T) {
	r := NewRouter(LogNone)
	sink := newTestSink()
	r.Add(NewBinding([]int{102, 101}, sink, "a", nil, MostRecentOfAny))
	r.Add(NewBinding([]int{108}, sink, "b", nil, MostRecentOfAny))

	got := r.MappedControls()
	want := []int{101, 102, 108}
	if len(got) != len(want) {
		t.Fatalf("MappedControls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MappedControls = %v, want %v", got, want)
		}
	}
}

func TestRouterDescribe(t *testing.T) {
	r := NewRouter(LogNone)
	sink := newTestSink()
	r.Add(NewBinding([]int{108, 102}, sink, "wavelength", nil, MostRecentOfAny))

	d := r.Describe()
	if !strings.Contains(d, "wavelength=cc[102 108]") {
		t.Errorf("Describe() = %q", d)
	}
}
