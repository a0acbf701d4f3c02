package pane

import "testing"

func TestLayoutSingleLeaf(t *testing.T) {
	tree, root := newTestTree(t)
	area := Rect{X: 0, Y: 1, Width: 80, Height: 23}

	rects := tree.Layout(root, area)
	if len(rects) != 1 {
		t.Fatalf("expected 1 rect, got %d", len(rects))
	}
	if rects[root] != area {
		t.Errorf("expected %+v, got %+v", area, rects[root])
	}
}

func TestLayoutSplits(t *testing.T) {
	tree, a := newTestTree(t)
	c1 := mustSplit(t, tree, a, Vertical)
	c2 := mustSplit(t, tree, c1.NewPaneID, Horizontal)

	rects := tree.Layout(c1.ContainerID, Rect{Width: 81, Height: 25})

	want := map[NodeID]Rect{
		a:            {X: 0, Y: 0, Width: 40, Height: 25},
		c1.NewPaneID: {X: 41, Y: 0, Width: 40, Height: 12},
		c2.NewPaneID: {X: 41, Y: 13, Width: 40, Height: 12},
	}
	for id, w := range want {
		if rects[id] != w {
			t.Errorf("%s: expected %+v, got %+v", id, w, rects[id])
		}
	}
}

func TestLayoutRespectsSize(t *testing.T) {
	tree, a := newTestTree(t)
	res := mustSplit(t, tree, a, Vertical)
	tree.Resize(res.ContainerID, 25)

	rects := tree.Layout(res.ContainerID, Rect{Width: 101, Height: 10})
	if rects[a].Width != 25 {
		t.Errorf("expected first width 25, got %d", rects[a].Width)
	}
	if rects[res.NewPaneID].Width != 75 {
		t.Errorf("expected second width 75, got %d", rects[res.NewPaneID].Width)
	}
}

func TestSplitSpan(t *testing.T) {
	tests := []struct {
		total              int
		size               float64
		first, second, gap int
	}{
		{0, 50, 0, 0, 0},
		{1, 50, 1, 0, 0},
		{2, 50, 1, 1, 0},
		{3, 50, 1, 1, 1},
		{11, 0, 0, 10, 1},
		{11, 100, 10, 0, 1},
	}
	for _, tt := range tests {
		f, s, g := splitSpan(tt.total, tt.size)
		if f != tt.first || s != tt.second || g != tt.gap {
			t.Errorf("splitSpan(%d, %v) = (%d, %d, %d), want (%d, %d, %d)",
				tt.total, tt.size, f, s, g, tt.first, tt.second, tt.gap)
		}
	}
}
