package midi

import (
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // register MIDI driver

	"psiwave-matrix/debug"
)

// rawBufferSize bounds how many driver messages can pile up between two
// frames before we start dropping.
const rawBufferSize = 512

// Input owns the MIDI transport. It opens the best available input port,
// buffers raw messages arriving on the driver goroutine, and decodes them
// on the render-loop goroutine during Drain, so clock and resolver state
// stay single-threaded. When no usable port exists the Input is disabled
// and drains empty forever; rendering continues regardless.
type Input struct {
	decoder  *Decoder
	clock    *ClockTracker
	raw      chan []byte
	stop     func()
	enabled  bool
	portName string
}

// NewInput opens a MIDI input. portQuery, when non-empty, selects the
// first port whose name contains it (case-insensitive); otherwise ports
// are scored heuristically, preferring hardware inputs over "through"
// ports. Never fails: all setup errors leave a disabled Input.
func NewInput(portQuery string) *Input {
	clock := NewClockTracker()
	in := &Input{
		decoder: NewDecoder(clock),
		clock:   clock,
		raw:     make(chan []byte, rawBufferSize),
	}

	ports := listPortsWithRetry()
	if len(ports) == 0 {
		fmt.Println("[midi] disabled (no MIDI input ports found)")
		return in
	}

	idx := choosePort(ports, portQuery)
	fmt.Println("[midi] available inputs:")
	for i, p := range ports {
		marker := ""
		if i == idx {
			marker = " <=="
		}
		fmt.Printf("[midi]   %2d: %s%s\n", i, p.String(), marker)
	}

	port := ports[idx]
	// UseTimeCode keeps the driver from filtering out 0xF8 clock bytes.
	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, timestampms int32) {
		data := make([]byte, len(msg))
		copy(data, msg)
		select {
		case in.raw <- data:
		default:
			// buffer full: drop rather than block the driver callback
		}
	}, gomidi.UseTimeCode())
	if err != nil {
		fmt.Printf("[midi] disabled (could not open MIDI input port): %v\n", err)
		return in
	}

	in.stop = stop
	in.enabled = true
	in.portName = port.String()
	fmt.Printf("[midi] listening on %q, any channel (CC + clock)\n", in.portName)
	return in
}

// Virtual drivers can register late; retry enumeration a few times.
func listPortsWithRetry() []drivers.In {
	var ports []drivers.In
	for attempt := 0; attempt < 4; attempt++ {
		ports = gomidi.GetInPorts()
		if len(ports) > 0 {
			break
		}
		if attempt < 3 {
			d := 600 * time.Millisecond
			if attempt == 2 {
				d = time.Second
			}
			time.Sleep(d)
		}
	}
	return ports
}

func choosePort(ports []drivers.In, query string) int {
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		for i, p := range ports {
			if strings.Contains(strings.ToLower(p.String()), q) {
				return i
			}
		}
		fmt.Printf("[midi] port query %q not found; using first input instead\n", query)
		return 0
	}

	best := 0
	bestScore := scorePort(ports[0].String())
	for i := 1; i < len(ports); i++ {
		if sc := scorePort(ports[i].String()); sc > bestScore {
			best = i
			bestScore = sc
		}
	}
	return best
}

func scorePort(name string) int {
	s := strings.ToLower(name)
	score := 0
	if strings.Contains(s, "midi in") {
		score += 100
	}
	if strings.Contains(s, "through") {
		score -= 100
	} else {
		score += 10
	}
	if strings.Contains(s, "usb") || strings.Contains(s, "controller") || strings.Contains(s, "keyboard") {
		score += 5
	}
	return score
}

// Drain decodes everything the driver buffered since the last poll and
// returns the CC batch, stamped with now. Never blocks; a disabled input
// returns nil forever.
func (in *Input) Drain(now float64) []CCEvent {
	for {
		select {
		case data := <-in.raw:
			in.decoder.Feed(data, now)
		default:
			return in.decoder.TakeCCs()
		}
	}
}

// DrainNotes drains queued note events; ownership transfers to the caller.
func (in *Input) DrainNotes() []NoteEvent {
	return in.decoder.TakeNotes()
}

// Clock returns the clock tracker fed by this input.
func (in *Input) Clock() *ClockTracker { return in.clock }

// ClockState reads the transport snapshot (consumes the start pulse).
func (in *Input) ClockState() ClockState { return in.clock.State() }

// ClockDebug reads the non-consuming diagnostic snapshot.
func (in *Input) ClockDebug() ClockDebug { return in.clock.Debug() }

// Enabled reports whether a port was opened.
func (in *Input) Enabled() bool { return in.enabled }

// PortName returns the opened port's name, or "" when disabled.
func (in *Input) PortName() string { return in.portName }

// Close releases the port. Safe on a disabled input.
func (in *Input) Close() {
	if in.stop != nil {
		in.stop()
		in.stop = nil
		debug.Log("midi", "input closed (%s)", in.portName)
	}
}
