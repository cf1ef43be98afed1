package midi

// Channel-voice status nibbles
const (
	StatusNoteOff       uint8 = 0x80
	StatusNoteOn        uint8 = 0x90
	StatusControlChange uint8 = 0xB0
)

// System real-time status bytes
const (
	StatusClock    uint8 = 0xF8
	StatusStart    uint8 = 0xFA
	StatusContinue uint8 = 0xFB
	StatusStop     uint8 = 0xFC
)

// CCEvent is a received Control Change message. Timestamps are wall-clock
// seconds since program start, sampled once per render frame.
type CCEvent struct {
	Channel int // 1-16
	Control int // 0-127
	Value   int // 0-127
	T       float64
}

// NoteEvent is a received NoteOn/NoteOff. On is true only for NoteOn with
// velocity > 0; a 0x90 with velocity 0 counts as a note off.
type NoteEvent struct {
	Channel  int // 1-16
	Note     int // 0-127
	Velocity int // 0-127
	On       bool
	T        float64
}
