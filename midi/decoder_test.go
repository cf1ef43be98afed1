package midi

import "testing"

func TestDecoderControlChange(t *testing.T) {
	d := NewDecoder(NewClockTracker())
	d.Feed([]byte{0xB0, 102, 64}, 1.5) // CC on channel 1

	ccs := d.TakeCCs()
	if len(ccs) != 1 {
		t.Fatalf("got %d CCs, want 1", len(ccs))
	}
	got := ccs[0]
	if got.Channel != 1 || got.Control != 102 || got.Value != 64 || got.T != 1.5 {
		t.Errorf("decoded %+v", got)
	}

	// batch was taken: next take is empty
	if d.TakeCCs() != nil {
		t.Error("TakeCCs did not clear the batch")
	}
}

func TestDecoderChannelNibble(t *testing.T) {
	d := NewDecoder(NewClockTracker())
	d.Feed([]byte{0xB9, 10, 20}, 0) // channel nibble 9 -> channel 10
	ccs := d.TakeCCs()
	if len(ccs) != 1 || ccs[0].Channel != 10 {
		t.Errorf("decoded %+v, want channel 10", ccs)
	}
}

func TestDecoderNotes(t *testing.T) {
	d := NewDecoder(NewClockTracker())
	d.Feed([]byte{0x90, 60, 100}, 1.0) // note on
	d.Feed([]byte{0x80, 60, 0}, 2.0)   // note off
	d.Feed([]byte{0x90, 62, 0}, 3.0)   // note on with velocity 0 = note off

	notes := d.TakeNotes()
	if len(notes) != 3 {
		t.Fatalf("got %d notes, want 3", len(notes))
	}
	if !notes[0].On || notes[0].Note != 60 || notes[0].Velocity != 100 {
		t.Errorf("note 0: %+v", notes[0])
	}
	if notes[1].On {
		t.Error("0x80 decoded as note on")
	}
	if notes[2].On {
		t.Error("0x90 with velocity 0 decoded as note on")
	}

	// queue ownership transferred on drain
	if d.TakeNotes() != nil {
		t.Error("TakeNotes did not empty the queue")
	}
}

func TestDecoderRealtimeInterceptedBeforeVoiceParsing(t *testing.T) {
	clock := NewClockTracker()
	d := NewDecoder(clock)

	d.Feed([]byte{0xFA}, 0.0)   // start
	d.Feed([]byte{0xF8}, 0.01)  // tick
	d.Feed([]byte{0xF8}, 0.02)  // tick
	d.Feed([]byte{0xFC}, 0.03)  // stop
	d.Feed([]byte{0xFB}, 0.04)  // continue

	dbg := clock.Debug()
	if !dbg.Running {
		t.Error("continue did not resume transport")
	}
	if dbg.TickCount != 0 {
		t.Errorf("stop did not reset tick count: %d", dbg.TickCount)
	}
	// none of the realtime bytes may surface as CC or note events
	if d.TakeCCs() != nil || d.TakeNotes() != nil {
		t.Error("realtime bytes leaked into the event batches")
	}
}

func TestDecoderIgnoresOtherRealtimeAndSysex(t *testing.T) {
	d := NewDecoder(NewClockTracker())
	d.Feed([]byte{0xFE}, 0) // active sensing
	d.Feed([]byte{0xFF}, 0) // reset
	d.Feed([]byte{0xF0, 0x7E, 0x7F, 0xF7}, 0) // sysex
	if d.TakeCCs() != nil || d.TakeNotes() != nil {
		t.Error("ignored message types produced events")
	}
}

func TestDecoderDropsTruncatedMessages(t *testing.T) {
	d := NewDecoder(NewClockTracker())
	d.Feed(nil, 0)
	d.Feed([]byte{}, 0)
	d.Feed([]byte{0xB0}, 0)
	d.Feed([]byte{0xB0, 102}, 0)
	d.Feed([]byte{0x90, 60}, 0)
	if d.TakeCCs() != nil || d.TakeNotes() != nil {
		t.Error("truncated message produced an event")
	}
}

func TestDecoderInterleavedBatch(t *testing.T) {
	clock := NewClockTracker()
	d := NewDecoder(clock)

	// a frame's worth of mixed traffic, all stamped with the same poll time
	d.Feed([]byte{0xF8}, 5.0)
	d.Feed([]byte{0xB0, 101, 10}, 5.0)
	d.Feed([]byte{0x90, 64, 80}, 5.0)
	d.Feed([]byte{0xB1, 102, 20}, 5.0)
	d.Feed([]byte{0xF8}, 5.0)

	ccs := d.TakeCCs()
	notes := d.TakeNotes()
	if len(ccs) != 2 || len(notes) != 1 {
		t.Fatalf("got %d CCs, %d notes; want 2, 1", len(ccs), len(notes))
	}
	if clock.Debug().TickCount != 2 {
		t.Errorf("tick count: %d, want 2", clock.Debug().TickCount)
	}
	if ccs[1].Channel != 2 {
		t.Errorf("second CC channel: %d, want 2", ccs[1].Channel)
	}
}
