package display

import (
	"fmt"

	"go.bug.st/serial"

	"psiwave-matrix/debug"
)

// frame header: magic pair then the panel dimensions, so the firmware can
// resync after a dropped byte.
const (
	frameMagic0 = 0xAA
	frameMagic1 = 0x55
)

// Serial streams frames to an LED chain over a serial device. Write errors
// are logged and swallowed so a flaky cable doesn't kill the show.
type Serial struct {
	w, h int

	bufs [2]*Buffer
	back int

	port  serial.Port
	frame []byte
}

// OpenSerial opens the named device at the given baud rate.
func OpenSerial(device string, baud, w, h int) (*Serial, error) {
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", device, err)
	}
	debug.Log("serial", "opened %s at %d baud", device, baud)
	return &Serial{
		w:     w,
		h:     h,
		bufs:  [2]*Buffer{NewBuffer(w, h), NewBuffer(w, h)},
		port:  p,
		frame: make([]byte, 4+w*h*3),
	}, nil
}

func (s *Serial) Width() int  { return s.w }
func (s *Serial) Height() int { return s.h }

func (s *Serial) CreateFrameCanvas() Canvas {
	return s.bufs[s.back]
}

// SwapOnVSync sends the canvas down the wire and flips buffers.
func (s *Serial) SwapOnVSync(c Canvas) (Canvas, error) {
	if s.port == nil {
		return c, ErrClosed
	}
	b, ok := c.(*Buffer)
	if !ok {
		return c, fmt.Errorf("display: foreign canvas %T", c)
	}
	s.send(b.Pix)
	if b == s.bufs[s.back] {
		s.back = 1 - s.back
	}
	return s.bufs[s.back], nil
}

func (s *Serial) send(pix []uint8) {
	s.frame[0] = frameMagic0
	s.frame[1] = frameMagic1
	s.frame[2] = byte(s.w)
	s.frame[3] = byte(s.h)
	copy(s.frame[4:], pix)
	if _, err := s.port.Write(s.frame); err != nil {
		debug.LogEvery(60, "serial", "write error: %v", err)
	}
}

// Clear blanks the buffers and pushes a black frame to the chain.
func (s *Serial) Clear() {
	s.bufs[0].Clear()
	s.bufs[1].Clear()
	if s.port != nil {
		s.send(s.bufs[0].Pix)
	}
}

// Close blanks the chain and closes the device.
func (s *Serial) Close() {
	if s.port == nil {
		return
	}
	s.Clear()
	_ = s.port.Close()
	s.port = nil
}
