package pane

import (
	"errors"
	"fmt"
	"testing"
)

func seqIDs() Option {
	n := 0
	return WithIDGenerator(func() NodeID {
		n++
		return NodeID(fmt.Sprintf("n%d", n))
	})
}

func newTestTree(t *testing.T) (*Tree, NodeID) {
	t.Helper()
	tree := New(seqIDs())
	root, err := tree.CreateRoot("root")
	if err != nil {
		t.Fatalf("CreateRoot failed: %v", err)
	}
	return tree, root
}

func mustSplit(t *testing.T, tree *Tree, id NodeID, dir SplitDirection) SplitResult {
	t.Helper()
	res, err := tree.Split(id, dir)
	if err != nil {
		t.Fatalf("Split(%s) failed: %v", id, err)
	}
	return res
}

func TestCreateRoot(t *testing.T) {
	tree := New(seqIDs())

	id, err := tree.CreateRoot("")
	if err != nil {
		t.Fatalf("CreateRoot failed: %v", err)
	}
	if id != "n1" {
		t.Errorf("expected generated id n1, got %s", id)
	}
	if _, ok := tree.Leaf(id); !ok {
		t.Error("expected root to be a leaf")
	}

	_, err = tree.CreateRoot(id)
	if !errors.Is(err, ErrDuplicateNode) {
		t.Errorf("expected ErrDuplicateNode, got %v", err)
	}
	if tree.Len() != 1 {
		t.Errorf("expected 1 node, got %d", tree.Len())
	}
}

func TestSplitRoot(t *testing.T) {
	tree, root := newTestTree(t)

	res := mustSplit(t, tree, root, Vertical)
	if !res.RootReplaced {
		t.Error("expected root to be replaced")
	}

	b, ok := tree.Branch(res.ContainerID)
	if !ok {
		t.Fatal("expected container to be a branch")
	}
	if b.First != root || b.Second != res.NewPaneID {
		t.Errorf("expected children (%s, %s), got (%s, %s)", root, res.NewPaneID, b.First, b.Second)
	}
	if b.Size != DefaultSize {
		t.Errorf("expected size %v, got %v", DefaultSize, b.Size)
	}
	if b.Split != Vertical {
		t.Errorf("expected vertical split, got %s", b.Split)
	}
	if tree.Parent(root) != res.ContainerID || tree.Parent(res.NewPaneID) != res.ContainerID {
		t.Error("expected both leaves to point at the container")
	}
	if r, _ := tree.Root(res.NewPaneID); r != res.ContainerID {
		t.Errorf("expected root %s, got %s", res.ContainerID, r)
	}
}

func TestSplitNestedRewritesOneReference(t *testing.T) {
	tree, root := newTestTree(t)
	outer := mustSplit(t, tree, root, Vertical)
	inner := mustSplit(t, tree, outer.NewPaneID, Horizontal)

	if inner.RootReplaced {
		t.Error("nested split must not replace the root")
	}
	b, _ := tree.Branch(outer.ContainerID)
	if b.First != root {
		t.Errorf("expected first child untouched, got %s", b.First)
	}
	if b.Second != inner.ContainerID {
		t.Errorf("expected second child %s, got %s", inner.ContainerID, b.Second)
	}
	if tree.Parent(inner.ContainerID) != outer.ContainerID {
		t.Error("expected inner container parent to be outer container")
	}
}

func TestSplitRejected(t *testing.T) {
	tree, root := newTestTree(t)
	res := mustSplit(t, tree, root, Vertical)
	before := tree.Len()

	tests := []struct {
		name string
		id   NodeID
		want error
	}{
		{"branch", res.ContainerID, ErrNotLeaf},
		{"unknown", "missing", ErrNodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tree.Split(tt.id, Horizontal)
			var se *StructuralError
			if !errors.As(err, &se) {
				t.Fatalf("expected StructuralError, got %v", err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if tree.Len() != before {
				t.Errorf("tree mutated: %d nodes, want %d", tree.Len(), before)
			}
		})
	}
}

func TestSplitCounts(t *testing.T) {
	for k := 0; k <= 8; k++ {
		t.Run(fmt.Sprintf("splits=%d", k), func(t *testing.T) {
			tree, root := newTestTree(t)
			top := root
			target := root
			for i := 0; i < k; i++ {
				dir := Horizontal
				if i%2 == 0 {
					dir = Vertical
				}
				res := mustSplit(t, tree, target, dir)
				if res.RootReplaced {
					top = res.ContainerID
				}
				// alternate between the old and the new leaf
				if i%3 == 0 {
					target = res.NewPaneID
				}
			}
			if got := len(tree.LeavesUnder(top)); got != k+1 {
				t.Errorf("expected %d leaves, got %d", k+1, got)
			}
			if got := tree.Len() - (k + 1); got != k {
				t.Errorf("expected %d branches, got %d", k, got)
			}
		})
	}
}

func TestCloseRoundTrip(t *testing.T) {
	tree, root := newTestTree(t)
	outer := mustSplit(t, tree, root, Vertical)
	inner := mustSplit(t, tree, outer.NewPaneID, Horizontal)

	before := tree.LeavesUnder(outer.ContainerID)

	res, err := tree.Close(inner.NewPaneID)
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if res.Sibling != outer.NewPaneID {
		t.Errorf("expected sibling %s, got %s", outer.NewPaneID, res.Sibling)
	}
	if res.NewRoot != "" {
		t.Errorf("expected no new root, got %s", res.NewRoot)
	}

	b, _ := tree.Branch(outer.ContainerID)
	if b.Second != outer.NewPaneID {
		t.Errorf("expected original leaf restored, got %s", b.Second)
	}
	if tree.Parent(outer.NewPaneID) != outer.ContainerID {
		t.Error("expected parent index restored")
	}
	if _, ok := tree.Get(inner.ContainerID); ok {
		t.Error("expected inner container removed")
	}
	after := tree.LeavesUnder(outer.ContainerID)
	if len(after) != len(before)-1 {
		t.Errorf("expected %d leaves, got %d", len(before)-1, len(after))
	}
}

func TestCloseSplitRootRestoresLeaf(t *testing.T) {
	tree, root := newTestTree(t)
	res := mustSplit(t, tree, root, Horizontal)

	cr, err := tree.Close(res.NewPaneID)
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if cr.NewRoot != root {
		t.Errorf("expected new root %s, got %s", root, cr.NewRoot)
	}
	if p := tree.Parent(root); p != "" {
		t.Errorf("expected root to have no parent, got %s", p)
	}
	if tree.Len() != 1 {
		t.Errorf("expected 1 node, got %d", tree.Len())
	}
}

func TestCloseLastPane(t *testing.T) {
	tree, root := newTestTree(t)
	if err := tree.BindSession(root, "s1"); err != nil {
		t.Fatalf("BindSession failed: %v", err)
	}
	_ = tree.SetActive(root)

	res, err := tree.Close(root)
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !res.Emptied {
		t.Error("expected tree to be emptied")
	}
	if res.SessionID != "s1" {
		t.Errorf("expected session s1, got %q", res.SessionID)
	}
	if tree.ActivePane() != "" {
		t.Errorf("expected no active pane, got %s", tree.ActivePane())
	}
	if tree.Len() != 0 {
		t.Errorf("expected empty arena, got %d nodes", tree.Len())
	}
}

func TestCloseNestedPromotion(t *testing.T) {
	// root A split into B, B split into D: close B so D moves up.
	tree, a := newTestTree(t)
	c1 := mustSplit(t, tree, a, Vertical)
	b := c1.NewPaneID
	c2 := mustSplit(t, tree, b, Horizontal)
	d := c2.NewPaneID
	if err := tree.SetActive(b); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	res, err := tree.Close(b)
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, ok := tree.Get(c2.ContainerID); ok {
		t.Error("expected inner container removed")
	}
	br, _ := tree.Branch(c1.ContainerID)
	if br.First != a || br.Second != d {
		t.Errorf("expected Branch(%s, %s), got Branch(%s, %s)", a, d, br.First, br.Second)
	}
	if res.Active != d || tree.ActivePane() != d {
		t.Errorf("expected active %s, got %s", d, tree.ActivePane())
	}
}

func TestCloseActiveMovesToLeftmostLeaf(t *testing.T) {
	tree, a := newTestTree(t)
	c1 := mustSplit(t, tree, a, Vertical)
	b := c1.NewPaneID
	c2 := mustSplit(t, tree, b, Horizontal)
	_ = tree.SetActive(a)

	res, err := tree.Close(a)
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if res.NewRoot != c2.ContainerID {
		t.Errorf("expected new root %s, got %s", c2.ContainerID, res.NewRoot)
	}
	if tree.ActivePane() != b {
		t.Errorf("expected active %s, got %s", b, tree.ActivePane())
	}
}

func TestCloseInactiveKeepsFocus(t *testing.T) {
	tree, a := newTestTree(t)
	res := mustSplit(t, tree, a, Vertical)
	_ = tree.SetActive(a)

	cr, err := tree.Close(res.NewPaneID)
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if cr.Active != a {
		t.Errorf("expected focus to stay on %s, got %s", a, cr.Active)
	}
}

func TestCloseBranchRejected(t *testing.T) {
	tree, root := newTestTree(t)
	res := mustSplit(t, tree, root, Vertical)

	_, err := tree.Close(res.ContainerID)
	if !errors.Is(err, ErrNotLeaf) {
		t.Errorf("expected ErrNotLeaf, got %v", err)
	}
	if tree.Len() != 3 {
		t.Errorf("expected 3 nodes, got %d", tree.Len())
	}
}

func TestResize(t *testing.T) {
	tree, root := newTestTree(t)
	res := mustSplit(t, tree, root, Vertical)

	tests := []struct {
		in   float64
		want float64
	}{
		{30, 30},
		{-5, 0},
		{150, 100},
		{100, 100},
	}
	for _, tt := range tests {
		if !tree.Resize(res.ContainerID, tt.in) {
			t.Fatalf("Resize(%v) returned false", tt.in)
		}
		b, _ := tree.Branch(res.ContainerID)
		if b.Size != tt.want {
			t.Errorf("Resize(%v): expected %v, got %v", tt.in, tt.want, b.Size)
		}
	}

	if tree.Resize(root, 10) {
		t.Error("expected resize of a leaf to be a no-op")
	}
	if tree.Resize("missing", 10) {
		t.Error("expected resize of unknown node to be a no-op")
	}
}

func TestEqualize(t *testing.T) {
	tree, root := newTestTree(t)
	outer := mustSplit(t, tree, root, Vertical)
	inner := mustSplit(t, tree, root, Horizontal)
	tree.Resize(outer.ContainerID, 20)
	tree.Resize(inner.ContainerID, 80)

	tree.Equalize(outer.ContainerID)

	for _, id := range []NodeID{outer.ContainerID, inner.ContainerID} {
		b, _ := tree.Branch(id)
		if b.Size != DefaultSize {
			t.Errorf("expected %s size %v, got %v", id, DefaultSize, b.Size)
		}
	}
}

func TestFindLeaf(t *testing.T) {
	tree, root := newTestTree(t)
	outer := mustSplit(t, tree, root, Vertical)
	mustSplit(t, tree, root, Horizontal)

	got, ok := tree.FindLeaf(outer.ContainerID)
	if !ok || got != root {
		t.Errorf("expected leftmost leaf %s, got %s", root, got)
	}
	got, ok = tree.FindLeaf(outer.NewPaneID)
	if !ok || got != outer.NewPaneID {
		t.Errorf("expected leaf itself, got %s", got)
	}
	if _, ok := tree.FindLeaf("missing"); ok {
		t.Error("expected missing node to have no leaf")
	}
}

func TestLeavesAcrossTrees(t *testing.T) {
	tree, first := newTestTree(t)
	second, _ := tree.CreateRoot("second")
	res := mustSplit(t, tree, first, Vertical)

	leaves := tree.Leaves()
	want := []NodeID{first, second, res.NewPaneID}
	if len(leaves) != len(want) {
		t.Fatalf("expected %d leaves, got %d", len(want), len(leaves))
	}
	for i, l := range leaves {
		if l.ID != want[i] {
			t.Errorf("leaf %d: expected %s, got %s", i, want[i], l.ID)
		}
	}
	if got := tree.LeavesUnder(second); len(got) != 1 {
		t.Errorf("expected trees to stay disjoint, got %v", got)
	}
}

func TestNextLeaf(t *testing.T) {
	tree, a := newTestTree(t)
	c1 := mustSplit(t, tree, a, Vertical)
	c2 := mustSplit(t, tree, c1.NewPaneID, Horizontal)
	b, d := c1.NewPaneID, c2.NewPaneID

	tests := []struct {
		from  NodeID
		delta int
		want  NodeID
	}{
		{a, 1, b},
		{b, 1, d},
		{d, 1, a},
		{a, -1, d},
		{"elsewhere", 1, a},
	}
	for _, tt := range tests {
		got, ok := tree.NextLeaf(c1.ContainerID, tt.from, tt.delta)
		if !ok || got != tt.want {
			t.Errorf("NextLeaf(%s, %d): expected %s, got %s", tt.from, tt.delta, tt.want, got)
		}
	}
}

func TestBindSession(t *testing.T) {
	tree, root := newTestTree(t)
	res := mustSplit(t, tree, root, Vertical)

	if err := tree.BindSession(root, "s1"); err != nil {
		t.Fatalf("BindSession failed: %v", err)
	}
	if got, ok := tree.LeafBySession("s1"); !ok || got != root {
		t.Errorf("expected %s, got %s", root, got)
	}

	// rebinding after a restart
	if err := tree.BindSession(root, ""); err != nil {
		t.Fatalf("unbind failed: %v", err)
	}
	if err := tree.BindSession(root, "s2"); err != nil {
		t.Fatalf("rebind failed: %v", err)
	}
	if _, ok := tree.LeafBySession("s1"); ok {
		t.Error("expected old session to be unbound")
	}

	if err := tree.BindSession(res.ContainerID, "s3"); !errors.Is(err, ErrNotLeaf) {
		t.Errorf("expected ErrNotLeaf, got %v", err)
	}
}

func TestSetActiveRequiresLeaf(t *testing.T) {
	tree, root := newTestTree(t)
	res := mustSplit(t, tree, root, Vertical)

	if err := tree.SetActive(res.ContainerID); !errors.Is(err, ErrNotLeaf) {
		t.Errorf("expected ErrNotLeaf, got %v", err)
	}
	if err := tree.SetActive(res.NewPaneID); err != nil {
		t.Errorf("SetActive failed: %v", err)
	}
	if tree.ActivePane() != res.NewPaneID {
		t.Errorf("expected active %s, got %s", res.NewPaneID, tree.ActivePane())
	}
}

func TestRemoveTree(t *testing.T) {
	tree, root := newTestTree(t)
	other, _ := tree.CreateRoot("other")
	res := mustSplit(t, tree, root, Vertical)
	_ = tree.BindSession(root, "s1")
	_ = tree.BindSession(res.NewPaneID, "s2")
	_ = tree.SetActive(res.NewPaneID)

	sessions := tree.RemoveTree(res.ContainerID)
	if len(sessions) != 2 || sessions[0] != "s1" || sessions[1] != "s2" {
		t.Errorf("expected [s1 s2], got %v", sessions)
	}
	if tree.Len() != 1 {
		t.Errorf("expected only the other tree left, got %d nodes", tree.Len())
	}
	if _, ok := tree.Get(other); !ok {
		t.Error("expected other tree untouched")
	}
	if tree.ActivePane() != "" {
		t.Errorf("expected focus cleared, got %s", tree.ActivePane())
	}
}
