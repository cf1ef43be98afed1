// Package display provides the pixel surfaces the effects draw on: an
// ebiten desktop window, a lipgloss terminal renderer, and a serial LED
// chain. All backends share the same double-buffered Matrix contract the
// LED hardware exposes.
package display

import "errors"

// ErrClosed is returned by SwapOnVSync once the user closes the display
// (window close, q/Escape). The run loop treats it as a clean shutdown.
var ErrClosed = errors.New("display closed")

// Canvas is one drawable frame buffer.
type Canvas interface {
	SetPixel(x, y int, r, g, b uint8)
	Clear()
}

// Matrix is a double-buffered pixel surface. CreateFrameCanvas hands out
// the back canvas; SwapOnVSync presents it and returns the other one.
type Matrix interface {
	Width() int
	Height() int
	CreateFrameCanvas() Canvas
	SwapOnVSync(c Canvas) (Canvas, error)
	Clear()
	Close()
}

// Driver is implemented by backends that must own the process main loop
// (the ebiten window). Main hands them the per-frame step; backends
// without this constraint are driven by a plain paced loop instead.
type Driver interface {
	Drive(step func() error) error
}

// Buffer is a plain RGB frame buffer, row-major, 3 bytes per pixel. It
// implements Canvas and backs every software Matrix.
type Buffer struct {
	W, H int
	Pix  []uint8
}

// NewBuffer allocates a zeroed w x h buffer.
func NewBuffer(w, h int) *Buffer {
	return &Buffer{W: w, H: h, Pix: make([]uint8, w*h*3)}
}

// SetPixel writes one pixel; out-of-bounds writes are ignored.
func (b *Buffer) SetPixel(x, y int, r, g, bl uint8) {
	if x < 0 || x >= b.W || y < 0 || y >= b.H {
		return
	}
	i := (y*b.W + x) * 3
	b.Pix[i] = r
	b.Pix[i+1] = g
	b.Pix[i+2] = bl
}

// At reads one pixel; out-of-bounds reads return black.
func (b *Buffer) At(x, y int) (r, g, bl uint8) {
	if x < 0 || x >= b.W || y < 0 || y >= b.H {
		return 0, 0, 0
	}
	i := (y*b.W + x) * 3
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}

// Clear blanks the buffer.
func (b *Buffer) Clear() {
	for i := range b.Pix {
		b.Pix[i] = 0
	}
}
