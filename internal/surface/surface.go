package surface

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/dshills/xterminal/internal/pane"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("surface closed")

// DefaultScrollback is the number of lines kept per pane.
const DefaultScrollback = 2000

// wideTail marks the cell covered by the right half of a wide rune.
const wideTail = rune(-1)

type parseState int

const (
	stateGround parseState = iota
	stateEscape
	stateCSI
	// stateCSIDiscard skips an overlong CSI sequence up to its final byte.
	stateCSIDiscard
	stateOSC
	stateOSCEscape
)

// maxCSIParams caps the parameter bytes kept for one CSI sequence.
const maxCSIParams = 64

// Surface is the text grid of one pane. It understands enough of the
// terminal stream to place text: printable runes, CR, LF, BS, TAB and a
// handful of CSI cursor and erase sequences. Other escape sequences are
// consumed and dropped.
//
// A Surface becomes ready once it has a non-zero size and has been drawn
// at least once. Surface is not safe for concurrent use.
type Surface struct {
	cols, rows int
	lines      [][]rune
	// cx, cy is the cursor; cy indexes lines.
	cx, cy     int
	scrollback int

	state  parseState
	params []byte

	painted  bool
	ready    bool
	closed   bool
	onReady  func()
	onResize func(cols, rows int)
}

// Option configures a Surface.
type Option func(*Surface)

// WithScrollback sets how many lines are kept.
func WithScrollback(n int) Option {
	return func(s *Surface) {
		if n > 0 {
			s.scrollback = n
		}
	}
}

// OnReady registers the callback fired once the surface is ready.
func OnReady(fn func()) Option {
	return func(s *Surface) { s.onReady = fn }
}

// OnResize registers the callback fired when the grid size changes.
func OnResize(fn func(cols, rows int)) Option {
	return func(s *Surface) { s.onResize = fn }
}

// New creates an empty surface with no area.
func New(opts ...Option) *Surface {
	s := &Surface{
		lines:      [][]rune{nil},
		scrollback: DefaultScrollback,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready reports whether the surface signaled readiness.
func (s *Surface) Ready() bool {
	return s.ready
}

// Size returns the grid size.
func (s *Surface) Size() (cols, rows int) {
	return s.cols, s.rows
}

// Close makes further writes fail.
func (s *Surface) Close() {
	s.closed = true
}

// SetSize changes the grid size and reports the change.
func (s *Surface) SetSize(cols, rows int) {
	cols, rows = max(cols, 0), max(rows, 0)
	if cols == s.cols && rows == s.rows {
		return
	}
	s.cols, s.rows = cols, rows
	if s.onResize != nil && cols > 0 && rows > 0 {
		s.onResize(cols, rows)
	}
	s.checkReady()
}

func (s *Surface) checkReady() {
	if s.ready || !s.painted || s.cols == 0 || s.rows == 0 {
		return
	}
	s.ready = true
	if s.onReady != nil {
		s.onReady()
	}
}

// Write appends terminal output.
func (s *Surface) Write(text string) error {
	if s.closed {
		return ErrClosed
	}
	for _, r := range text {
		s.feed(r)
	}
	return nil
}

func (s *Surface) feed(r rune) {
	switch s.state {
	case stateGround:
		s.ground(r)
	case stateEscape:
		switch r {
		case '[':
			s.state = stateCSI
			s.params = s.params[:0]
		case ']':
			s.state = stateOSC
		default:
			// intermediates such as ESC ( B wait for their final byte
			if r < 0x20 || r > 0x2f {
				s.state = stateGround
			}
		}
	case stateCSI:
		if r >= 0x40 && r <= 0x7e {
			s.csi(r, string(s.params))
			s.state = stateGround
			return
		}
		if len(s.params) >= maxCSIParams {
			s.params = s.params[:0]
			s.state = stateCSIDiscard
			return
		}
		if r < 0x80 {
			s.params = append(s.params, byte(r))
		}
	case stateCSIDiscard:
		if r >= 0x40 && r <= 0x7e {
			s.state = stateGround
		}
	case stateOSC:
		switch r {
		case 0x07:
			s.state = stateGround
		case 0x1b:
			s.state = stateOSCEscape
		}
	case stateOSCEscape:
		if r == '\\' {
			s.state = stateGround
		} else {
			s.state = stateOSC
		}
	}
}

func (s *Surface) ground(r rune) {
	switch r {
	case 0x1b:
		s.state = stateEscape
	case '\r':
		s.cx = 0
	case '\n':
		s.lineFeed()
	case '\b':
		if s.cx > 0 {
			s.cx--
		}
	case '\t':
		s.cx = (s.cx/8 + 1) * 8
		if s.cols > 0 {
			s.cx = min(s.cx, s.cols-1)
		}
	default:
		if r < 0x20 || r == 0x7f {
			return
		}
		s.put(r)
	}
}

func (s *Surface) put(r rune) {
	w := runewidth.RuneWidth(r)
	if w == 0 {
		return
	}
	if s.cols > 0 && s.cx+w > s.cols {
		s.cx = 0
		s.lineFeed()
	}
	line := s.lines[s.cy]
	for len(line) < s.cx+w {
		line = append(line, ' ')
	}
	line[s.cx] = r
	if w == 2 {
		line[s.cx+1] = wideTail
	}
	s.lines[s.cy] = line
	s.cx += w
}

func (s *Surface) lineFeed() {
	s.cy++
	if s.cy == len(s.lines) {
		s.lines = append(s.lines, nil)
	}
	if over := len(s.lines) - s.scrollback; over > 0 {
		s.lines = s.lines[over:]
		s.cy -= over
	}
}

// top returns the index of the first visible line.
func (s *Surface) top() int {
	return max(len(s.lines)-max(s.rows, 1), 0)
}

func (s *Surface) csi(final rune, params string) {
	args := parseParams(params)
	arg := func(i, def int) int {
		if i < len(args) && args[i] > 0 {
			return args[i]
		}
		return def
	}
	switch final {
	case 'K':
		line := s.lines[s.cy]
		switch arg(0, 0) {
		case 0:
			if s.cx < len(line) {
				s.lines[s.cy] = line[:s.cx]
			}
		case 1:
			for i := 0; i < min(s.cx+1, len(line)); i++ {
				line[i] = ' '
			}
		case 2:
			s.lines[s.cy] = nil
		}
	case 'J':
		if arg(0, 0) >= 2 {
			s.clearVisible()
		}
	case 'H', 'f':
		row := arg(0, 1) - 1
		col := arg(1, 1) - 1
		s.moveTo(row, col)
	case 'A':
		s.cy = max(s.cy-arg(0, 1), s.top())
	case 'B':
		s.moveTo(s.cy-s.top()+arg(0, 1), s.cx)
	case 'C':
		s.cx += arg(0, 1)
		if s.cols > 0 {
			s.cx = min(s.cx, s.cols-1)
		}
	case 'D':
		s.cx = max(s.cx-arg(0, 1), 0)
	case 'G':
		s.cx = arg(0, 1) - 1
	}
}

// moveTo places the cursor at a visible row and column.
func (s *Surface) moveTo(row, col int) {
	if s.rows > 0 {
		row = min(row, s.rows-1)
	}
	row = max(row, 0)
	for len(s.lines) < s.top()+row+1 && len(s.lines) < max(s.rows, 1) {
		s.lines = append(s.lines, nil)
	}
	s.cy = min(s.top()+row, len(s.lines)-1)
	s.cx = max(col, 0)
}

func (s *Surface) clearVisible() {
	for i := s.top(); i < len(s.lines); i++ {
		s.lines[i] = nil
	}
	s.cx = 0
	s.cy = s.top()
}

func parseParams(p string) []int {
	if p == "" {
		return nil
	}
	p = strings.TrimLeft(p, "?>=")
	parts := strings.Split(p, ";")
	out := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err == nil {
			out[i] = n
		}
	}
	return out
}

// Lines returns the visible lines with trailing spaces removed.
func (s *Surface) Lines() []string {
	top := s.top()
	out := make([]string, 0, len(s.lines)-top)
	for _, line := range s.lines[top:] {
		var b strings.Builder
		for _, r := range line {
			if r != wideTail {
				b.WriteRune(r)
			}
		}
		out = append(out, strings.TrimRight(b.String(), " "))
	}
	return out
}

// Cursor returns the cursor position relative to the visible area.
func (s *Surface) Cursor() (x, y int) {
	return s.cx, s.cy - s.top()
}

// Draw paints the visible lines into rect and marks the surface painted.
// The grid takes the size of rect.
func (s *Surface) Draw(scr *Screen, rect pane.Rect, style tcell.Style) {
	s.SetSize(rect.Width, rect.Height)
	scr.Fill(rect, ' ', style)
	top := s.top()
	for row := 0; row < rect.Height && top+row < len(s.lines); row++ {
		line := s.lines[top+row]
		for col := 0; col < rect.Width && col < len(line); col++ {
			if r := line[col]; r != wideTail {
				scr.SetContent(rect.X+col, rect.Y+row, r, style)
			}
		}
	}
	s.painted = true
	s.checkReady()
}
