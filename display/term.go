package display

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

// Term renders the matrix into the terminal using half-block characters,
// two pixel rows per text cell. Useful over ssh or when no window system
// is around.
type Term struct {
	w, h int

	bufs [2]*Buffer
	back int

	out      *bufio.Writer
	style    lipgloss.Style
	oldState *term.State
	keyCh    chan rune
	closed   bool
}

// NewTerm creates a terminal backend and puts stdin into raw mode so
// single keypresses arrive without Enter. A non-tty stdin just means no
// keyboard control; rendering still works.
func NewTerm(w, h int) (*Term, error) {
	t := &Term{
		w:     w,
		h:     h,
		bufs:  [2]*Buffer{NewBuffer(w, h), NewBuffer(w, h)},
		out:   bufio.NewWriterSize(os.Stdout, w*h*32),
		style: lipgloss.NewStyle(),
		keyCh: make(chan rune, 16),
	}
	if st, err := term.MakeRaw(os.Stdin.Fd()); err == nil {
		t.oldState = st
		go t.readKeys()
	}

	fmt.Fprint(t.out, "\x1b[2J\x1b[?25l")
	t.out.Flush()
	return t, nil
}

func (t *Term) readKeys() {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n == 1 {
			select {
			case t.keyCh <- rune(buf[0]):
			default:
			}
		}
	}
}

func (t *Term) Width() int  { return t.w }
func (t *Term) Height() int { return t.h }

func (t *Term) CreateFrameCanvas() Canvas {
	return t.bufs[t.back]
}

// TakeKeys drains pending keypresses. Quit keys (q, Escape, Ctrl-C) close
// the display instead of being returned.
func (t *Term) TakeKeys() []rune {
	var out []rune
	for {
		select {
		case r := <-t.keyCh:
			switch r {
			case 'q', 'Q', 0x1b, 0x03:
				t.closed = true
			default:
				out = append(out, r)
			}
		default:
			return out
		}
	}
}

// SwapOnVSync repaints the terminal from the canvas and flips buffers.
func (t *Term) SwapOnVSync(c Canvas) (Canvas, error) {
	if t.closed {
		return c, ErrClosed
	}
	b, ok := c.(*Buffer)
	if !ok {
		return c, fmt.Errorf("display: foreign canvas %T", c)
	}
	t.paint(b)
	if b == t.bufs[t.back] {
		t.back = 1 - t.back
	}
	return t.bufs[t.back], nil
}

// paint draws two pixel rows per line using the upper half block, top
// pixel as foreground and bottom pixel as background.
func (t *Term) paint(b *Buffer) {
	fmt.Fprint(t.out, "\x1b[H")
	var sb strings.Builder
	for y := 0; y < t.h; y += 2 {
		sb.Reset()
		for x := 0; x < t.w; x++ {
			tr, tg, tb := b.At(x, y)
			br, bg, bb := b.At(x, y+1)
			cell := t.style.
				Foreground(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", tr, tg, tb))).
				Background(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", br, bg, bb)))
			sb.WriteString(cell.Render("▀"))
		}
		fmt.Fprint(t.out, sb.String(), "\x1b[0m\r\n")
	}
	t.out.Flush()
}

// Clear blanks both buffers and the terminal.
func (t *Term) Clear() {
	t.bufs[0].Clear()
	t.bufs[1].Clear()
	fmt.Fprint(t.out, "\x1b[2J\x1b[H")
	t.out.Flush()
}

// Close restores the terminal.
func (t *Term) Close() {
	t.closed = true
	fmt.Fprint(t.out, "\x1b[0m\x1b[?25h\r\n")
	t.out.Flush()
	if t.oldState != nil {
		term.Restore(os.Stdin.Fd(), t.oldState)
		t.oldState = nil
	}
}
