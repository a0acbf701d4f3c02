package pane

import "math"

// Rect is a cell rectangle.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Layout assigns a rectangle to every leaf under root. Adjacent children
// are separated by a one cell divider when the span allows it.
func (t *Tree) Layout(root NodeID, area Rect) map[NodeID]Rect {
	out := make(map[NodeID]Rect)
	t.layout(root, area, out)
	return out
}

func (t *Tree) layout(id NodeID, area Rect, out map[NodeID]Rect) {
	switch n := t.nodes[id].(type) {
	case *Leaf:
		out[n.ID] = area
	case *Branch:
		first, second := area, area
		if n.Split == Vertical {
			a, b, gap := splitSpan(area.Width, n.Size)
			first.Width = a
			second.X = area.X + a + gap
			second.Width = b
		} else {
			a, b, gap := splitSpan(area.Height, n.Size)
			first.Height = a
			second.Y = area.Y + a + gap
			second.Height = b
		}
		t.layout(n.First, first, out)
		t.layout(n.Second, second, out)
	}
}

// splitSpan divides total cells by a percentage, reserving a divider cell.
func splitSpan(total int, size float64) (first, second, gap int) {
	if total <= 0 {
		return 0, 0, 0
	}
	if total >= 3 {
		gap = 1
	}
	avail := total - gap
	first = int(math.Round(float64(avail) * clampSize(size) / 100))
	first = min(max(first, 0), avail)
	return first, avail - first, gap
}
