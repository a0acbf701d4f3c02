package surface

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/xterminal/internal/pane"
	"github.com/dshills/xterminal/internal/tab"
)

// Frame is everything one repaint of the window needs.
type Frame struct {
	Tabs []tab.Tab
	// Rects positions the panes of the active tab, from ContentArea.
	Rects    map[pane.NodeID]pane.Rect
	Surfaces map[pane.NodeID]*Surface
	Active   pane.NodeID
	// Broadcast shows the broadcast indicator.
	Broadcast bool
	// Status is free text for the right side of the status line.
	Status string
}

// Styles used by the window chrome.
var (
	StyleDefault   = tcell.StyleDefault
	StyleInactive  = tcell.StyleDefault.Dim(true)
	StyleTab       = tcell.StyleDefault.Reverse(true)
	StyleActiveTab = tcell.StyleDefault.Bold(true)
	StyleBell      = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	StyleDivider   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	StyleStatus    = tcell.StyleDefault.Reverse(true)
	StyleBroadcast = tcell.StyleDefault.Background(tcell.ColorRed).Foreground(tcell.ColorWhite).Bold(true)
)

// ContentArea is the part of a width x height screen left for panes: the
// first row holds the tab strip and the last the status line.
func ContentArea(width, height int) pane.Rect {
	return pane.Rect{X: 0, Y: 1, Width: width, Height: max(height-2, 0)}
}

// Render repaints the whole window and places the cursor in the active
// pane.
func (s *Screen) Render(f Frame) {
	width, height := s.Size()
	s.Fill(pane.Rect{Width: width, Height: height}, ' ', StyleDefault)
	s.drawTabs(f.Tabs, width)

	area := ContentArea(width, height)
	s.Fill(area, '│', StyleDivider)
	for id, rect := range f.Rects {
		sf, ok := f.Surfaces[id]
		if !ok {
			continue
		}
		style := StyleInactive
		if id == f.Active {
			style = StyleDefault
		}
		sf.Draw(s, rect, style)
	}
	s.drawStatus(f, width, height)

	s.HideCursor()
	if rect, ok := f.Rects[f.Active]; ok {
		if sf, ok := f.Surfaces[f.Active]; ok {
			x, y := sf.Cursor()
			if x < rect.Width && y >= 0 && y < rect.Height {
				s.ShowCursor(rect.X+x, rect.Y+y)
			}
		}
	}
	s.Show()
}

func (s *Screen) drawTabs(tabs []tab.Tab, width int) {
	s.Fill(pane.Rect{Width: width, Height: 1}, ' ', StyleTab)
	x := 0
	for i, t := range tabs {
		style := StyleTab
		if t.IsActive {
			style = StyleActiveTab
		}
		if t.Color != "" {
			style = style.Foreground(tcell.GetColor(t.Color))
		}
		label := fmt.Sprintf(" %d:%s ", i+1, t.Title)
		if t.HasBell {
			label = fmt.Sprintf(" %d:%s! ", i+1, t.Title)
			style = StyleBell
		}
		x = s.drawText(x, 0, width, label, style)
		if x >= width {
			return
		}
	}
}

func (s *Screen) drawStatus(f Frame, width, height int) {
	if height < 2 {
		return
	}
	y := height - 1
	s.Fill(pane.Rect{Y: y, Width: width, Height: 1}, ' ', StyleStatus)
	x := 0
	if f.Broadcast {
		x = s.drawText(x, y, width, " BROADCAST ", StyleBroadcast)
	}
	if f.Status != "" {
		s.drawText(x+1, y, width, f.Status, StyleStatus)
	}
}

// drawText writes text from x and returns the column after it.
func (s *Screen) drawText(x, y, width int, text string, style tcell.Style) int {
	for _, r := range text {
		if x >= width {
			break
		}
		s.SetContent(x, y, r, style)
		x++
	}
	return x
}
