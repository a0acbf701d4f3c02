// Package surface draws panes, the tab strip and the status line on a
// tcell screen, and converts tcell key events into the bytes a shell
// expects.
package surface

import (
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/xterminal/internal/pane"
)

// Screen wraps a tcell.Screen.
type Screen struct {
	screen        tcell.Screen
	resizeHandler func(width, height int)
	mu            sync.Mutex
}

// NewScreen creates a screen on the controlling terminal.
func NewScreen() (*Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return &Screen{screen: screen}, nil
}

// NewScreenWith wraps an existing tcell screen, such as a simulation
// screen in tests.
func NewScreenWith(s tcell.Screen) *Screen {
	return &Screen{screen: s}
}

// Init takes over the terminal.
func (s *Screen) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.screen.Init(); err != nil {
		return err
	}

	// Bracketed paste arrives as one event instead of a key storm
	s.screen.EnablePaste()
	return nil
}

// Shutdown restores the terminal.
func (s *Screen) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.Fini()
}

// Size returns the screen size in cells.
func (s *Screen) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.screen.Size()
}

// OnResize registers a callback for terminal resizes.
func (s *Screen) OnResize(callback func(width, height int)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resizeHandler = callback
}

// SetContent sets one cell.
func (s *Screen) SetContent(x, y int, r rune, style tcell.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.SetContent(x, y, r, nil, style)
}

// Fill paints a rectangle with one rune.
func (s *Screen) Fill(rect pane.Rect, r rune, style tcell.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()

	width, height := s.screen.Size()
	for y := rect.Y; y < rect.Y+rect.Height && y < height; y++ {
		for x := rect.X; x < rect.X+rect.Width && x < width; x++ {
			if x >= 0 && y >= 0 {
				s.screen.SetContent(x, y, r, nil, style)
			}
		}
	}
}

// Clear blanks the whole screen.
func (s *Screen) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.Clear()
}

// Show flushes pending changes to the terminal.
func (s *Screen) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.Show()
}

// ShowCursor places the cursor.
func (s *Screen) ShowCursor(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.ShowCursor(x, y)
}

// HideCursor hides the cursor.
func (s *Screen) HideCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.HideCursor()
}

// PollEvent blocks for the next terminal event. Resize events also fire the
// OnResize callback.
func (s *Screen) PollEvent() tcell.Event {
	ev := s.screen.PollEvent()
	if re, ok := ev.(*tcell.EventResize); ok {
		s.mu.Lock()
		h := s.resizeHandler
		s.mu.Unlock()
		if h != nil {
			w, ht := re.Size()
			h(w, ht)
		}
	}
	return ev
}

// PostEvent queues an event for PollEvent.
func (s *Screen) PostEvent(ev tcell.Event) error {
	return s.screen.PostEvent(ev)
}

// Beep rings the terminal bell.
func (s *Screen) Beep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.screen.Beep() // best-effort; terminal may not support beep
}

// Suspend releases the terminal, e.g. before stopping the process.
func (s *Screen) Suspend() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.screen.Suspend()
}

// Resume reclaims the terminal after Suspend.
func (s *Screen) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.screen.Resume()
}

// Colors reports the number of colors the terminal supports.
func (s *Screen) Colors() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.screen.Colors()
}
