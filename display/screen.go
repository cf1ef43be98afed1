package display

import (
	"errors"
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Screen shows the matrix in a desktop window, scaled up pixel-for-pixel.
// Drop-in stand-in for the LED hardware when developing on a desktop.
//
// ebiten owns the process main loop, so Screen implements Driver: the run
// loop's step runs inside Update, which keeps every piece of shared state
// on one goroutine.
type Screen struct {
	w, h, scale int

	bufs      [2]*Buffer
	back      int
	presented *Buffer

	img  *ebiten.Image
	rgba []byte

	step    func() error
	stepErr error
	stepMS  float64
	closed  bool
	keys    []rune
}

// NewScreen creates a window backend. targetFPS caps the frame pace;
// 0 or negative runs uncapped.
func NewScreen(w, h, scale int, targetFPS float64) *Screen {
	if scale < 1 {
		scale = 1
	}
	s := &Screen{
		w:     w,
		h:     h,
		scale: scale,
		bufs:  [2]*Buffer{NewBuffer(w, h), NewBuffer(w, h)},
		img:   ebiten.NewImage(w, h),
		rgba:  make([]byte, w*h*4),
	}
	ebiten.SetWindowTitle("psiwave-matrix (screen)")
	ebiten.SetWindowSize(w*scale, h*scale)
	if targetFPS > 0 {
		ebiten.SetTPS(int(targetFPS))
	} else {
		ebiten.SetTPS(ebiten.SyncWithFPS)
	}
	return s
}

func (s *Screen) Width() int  { return s.w }
func (s *Screen) Height() int { return s.h }

// CreateFrameCanvas returns the back canvas.
func (s *Screen) CreateFrameCanvas() Canvas {
	return s.bufs[s.back]
}

// SwapOnVSync presents the canvas and returns the other one. The actual
// screen refresh happens in Draw; this only flips buffers.
func (s *Screen) SwapOnVSync(c Canvas) (Canvas, error) {
	if s.closed {
		return c, ErrClosed
	}
	if b, ok := c.(*Buffer); ok {
		s.presented = b
		if b == s.bufs[s.back] {
			s.back = 1 - s.back
		}
	}
	return s.bufs[s.back], nil
}

// Clear blanks both buffers and the presented frame.
func (s *Screen) Clear() {
	s.bufs[0].Clear()
	s.bufs[1].Clear()
}

// Close makes the next Update terminate the window.
func (s *Screen) Close() {
	s.closed = true
}

// TakeKeys returns the app-relevant keys pressed since the last call.
func (s *Screen) TakeKeys() []rune {
	out := s.keys
	s.keys = nil
	return out
}

// Drive runs the ebiten main loop around step. Returns ErrClosed when the
// user closed the window, or step's error.
func (s *Screen) Drive(step func() error) error {
	s.step = step
	if err := ebiten.RunGame(s); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	if s.stepErr != nil {
		return s.stepErr
	}
	return ErrClosed
}

// Update implements ebiten.Game: key handling plus one app frame.
func (s *Screen) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		s.closed = true
	}
	if s.closed {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) || inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		s.keys = append(s.keys, 'n')
	}

	if s.step != nil {
		began := time.Now()
		if err := s.step(); err != nil {
			if !errors.Is(err, ErrClosed) {
				s.stepErr = err
			}
			return ebiten.Termination
		}
		s.stepMS = float64(time.Since(began).Microseconds()) / 1000.0
	}
	return nil
}

// Draw implements ebiten.Game: blit the presented buffer, scaled.
func (s *Screen) Draw(screen *ebiten.Image) {
	if s.presented != nil {
		src := s.presented.Pix
		for i := 0; i < s.w*s.h; i++ {
			s.rgba[i*4] = src[i*3]
			s.rgba[i*4+1] = src[i*3+1]
			s.rgba[i*4+2] = src[i*3+2]
			s.rgba[i*4+3] = 0xFF
		}
		s.img.WritePixels(s.rgba)

		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(float64(s.scale), float64(s.scale))
		screen.DrawImage(s.img, op)
	}
	ebitenutil.DebugPrintAt(screen,
		fmt.Sprintf("%5.1f FPS  %5.2f ms", ebiten.ActualFPS(), s.stepMS),
		s.w*s.scale-130, 8)
}

// Layout implements ebiten.Game.
func (s *Screen) Layout(outsideWidth, outsideHeight int) (int, int) {
	return s.w * s.scale, s.h * s.scale
}
