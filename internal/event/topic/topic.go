// Package topic names bus events and the patterns subscribers select them
// with. Topics are dot separated:
//
//	pane.closed       exact topic
//	pane.*            any single segment under pane
//	session.**        session and anything below it
package topic

import "strings"

// Topic is a dot separated event name such as "pane.created".
type Topic string

const (
	// Any matches exactly one segment.
	Any = "*"
	// Rest matches zero or more trailing or inner segments.
	Rest = "**"
)

// Segments splits t at the dots. The empty topic has no segments.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), ".")
}

// IsValid reports whether t is non-empty without empty segments.
func (t Topic) IsValid() bool {
	return t != "" && !slicesContainsEmpty(t.Segments())
}

// HasWildcard reports whether t is a pattern rather than a concrete topic.
func (t Topic) HasWildcard() bool {
	return strings.Contains(string(t), Any)
}

// Matches reports whether t is selected by pattern.
func (t Topic) Matches(pattern Topic) bool {
	if !pattern.HasWildcard() {
		return t == pattern
	}
	return match(t.Segments(), pattern.Segments())
}

func match(segs, pat []string) bool {
	for len(pat) > 0 {
		head := pat[0]
		if head == Rest {
			for skip := 0; skip <= len(segs); skip++ {
				if match(segs[skip:], pat[1:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 || (head != Any && head != segs[0]) {
			return false
		}
		segs, pat = segs[1:], pat[1:]
	}
	return len(segs) == 0
}

func slicesContainsEmpty(segs []string) bool {
	for _, s := range segs {
		if s == "" {
			return true
		}
	}
	return false
}
