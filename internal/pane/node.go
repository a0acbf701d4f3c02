package pane

// NodeID identifies a node in the arena.
type NodeID string

// SplitDirection is the axis a Branch divides along.
type SplitDirection int

const (
	// Horizontal stacks the children top and bottom.
	Horizontal SplitDirection = iota
	// Vertical places the children side by side.
	Vertical
)

// String returns the direction name.
func (d SplitDirection) String() string {
	switch d {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return "unknown"
	}
}

// ParseSplitDirection converts a direction name to a SplitDirection.
func ParseSplitDirection(s string) (SplitDirection, bool) {
	switch s {
	case "horizontal", "h", "down":
		return Horizontal, true
	case "vertical", "v", "right":
		return Vertical, true
	default:
		return Horizontal, false
	}
}

// DefaultSize is the share given to the first child of a new Branch.
const DefaultSize = 50.0

// Node is a member of the arena. The concrete type is *Leaf or *Branch.
type Node interface {
	NodeID() NodeID
	isNode()
}

// Leaf is a terminal pane.
type Leaf struct {
	ID NodeID
	// SessionID is empty until a session is bound.
	SessionID string
	Size      float64
}

// NodeID returns the leaf id.
func (l *Leaf) NodeID() NodeID { return l.ID }

func (*Leaf) isNode() {}

// Branch divides its area between First and Second.
type Branch struct {
	ID     NodeID
	Split  SplitDirection
	First  NodeID
	Second NodeID
	// Size is the percentage given to First; Second gets 100-Size.
	Size float64
}

// NodeID returns the branch id.
func (b *Branch) NodeID() NodeID { return b.ID }

func (*Branch) isNode() {}

// replaceChild swaps the reference old for repl. It reports whether a
// reference was rewritten.
func (b *Branch) replaceChild(old, repl NodeID) bool {
	switch old {
	case b.First:
		b.First = repl
	case b.Second:
		b.Second = repl
	default:
		return false
	}
	return true
}

// other returns the child that is not id.
func (b *Branch) other(id NodeID) NodeID {
	if b.First == id {
		return b.Second
	}
	return b.First
}
