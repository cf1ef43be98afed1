package midi

// Decoder turns a raw real-time MIDI byte stream into typed events.
// Clock bytes update the ClockTracker as a side effect; CC events
// accumulate into a per-drain batch and notes queue until TakeNotes.
// Malformed or truncated messages are dropped, never surfaced.
type Decoder struct {
	clock *ClockTracker
	ccs   []CCEvent
	notes []NoteEvent
}

// NewDecoder creates a decoder feeding clock bytes into clock.
func NewDecoder(clock *ClockTracker) *Decoder {
	return &Decoder{clock: clock}
}

// Clock returns the tracker this decoder feeds.
func (d *Decoder) Clock() *ClockTracker { return d.clock }

// Feed parses one raw message as delivered by the driver, stamping events
// with now (seconds since program start).
func (d *Decoder) Feed(data []byte, now float64) {
	if len(data) == 0 {
		return
	}
	status := data[0]

	// Real-time bytes are intercepted before channel-voice parsing.
	switch status {
	case StatusClock:
		d.clock.OnTick(now)
		return
	case StatusStart:
		d.clock.OnStart()
		return
	case StatusContinue:
		d.clock.OnContinue()
		return
	case StatusStop:
		d.clock.OnStop()
		return
	}
	if status >= 0xF8 {
		// other real-time (active sensing, reset): ignored
		return
	}

	if len(data) < 3 {
		return
	}
	msgType := status & 0xF0
	ch := int(status&0x0F) + 1

	switch msgType {
	case StatusNoteOn, StatusNoteOff:
		vel := int(data[2] & 0x7F)
		d.notes = append(d.notes, NoteEvent{
			Channel:  ch,
			Note:     int(data[1] & 0x7F),
			Velocity: vel,
			On:       msgType == StatusNoteOn && vel > 0,
			T:        now,
		})
	case StatusControlChange:
		d.ccs = append(d.ccs, CCEvent{
			Channel: ch,
			Control: int(data[1] & 0x7F),
			Value:   int(data[2] & 0x7F),
			T:       now,
		})
	}
}

// TakeCCs returns the CC batch accumulated since the last call and clears
// it. Returns nil when nothing arrived.
func (d *Decoder) TakeCCs() []CCEvent {
	if len(d.ccs) == 0 {
		return nil
	}
	out := d.ccs
	d.ccs = nil
	return out
}

// TakeNotes drains the queued note events; ownership transfers to the
// caller.
func (d *Decoder) TakeNotes() []NoteEvent {
	if len(d.notes) == 0 {
		return nil
	}
	out := d.notes
	d.notes = nil
	return out
}
