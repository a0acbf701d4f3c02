package surface

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
)

// specialKeys maps tcell keys to their name and xterm encoding. The CSI
// final byte is used for keys that take modifier parameters.
var specialKeys = map[tcell.Key]struct {
	name  string
	seq   string
	final byte
}{
	tcell.KeyUp:      {"up", "\x1b[A", 'A'},
	tcell.KeyDown:    {"down", "\x1b[B", 'B'},
	tcell.KeyRight:   {"right", "\x1b[C", 'C'},
	tcell.KeyLeft:    {"left", "\x1b[D", 'D'},
	tcell.KeyHome:    {"home", "\x1b[H", 'H'},
	tcell.KeyEnd:     {"end", "\x1b[F", 'F'},
	tcell.KeyPgUp:    {"pgup", "\x1b[5~", 0},
	tcell.KeyPgDn:    {"pgdn", "\x1b[6~", 0},
	tcell.KeyInsert:  {"insert", "\x1b[2~", 0},
	tcell.KeyDelete:  {"delete", "\x1b[3~", 0},
	tcell.KeyBacktab: {"backtab", "\x1b[Z", 0},
	tcell.KeyF1:      {"f1", "\x1bOP", 0},
	tcell.KeyF2:      {"f2", "\x1bOQ", 0},
	tcell.KeyF3:      {"f3", "\x1bOR", 0},
	tcell.KeyF4:      {"f4", "\x1bOS", 0},
	tcell.KeyF5:      {"f5", "\x1b[15~", 0},
	tcell.KeyF6:      {"f6", "\x1b[17~", 0},
	tcell.KeyF7:      {"f7", "\x1b[18~", 0},
	tcell.KeyF8:      {"f8", "\x1b[19~", 0},
	tcell.KeyF9:      {"f9", "\x1b[20~", 0},
	tcell.KeyF10:     {"f10", "\x1b[21~", 0},
	tcell.KeyF11:     {"f11", "\x1b[23~", 0},
	tcell.KeyF12:     {"f12", "\x1b[24~", 0},
}

// Encode returns the bytes a shell expects for a key press.
func Encode(ev *tcell.EventKey) string {
	k, mod := ev.Key(), ev.Modifiers()
	switch k {
	case tcell.KeyRune:
		r := ev.Rune()
		if mod&tcell.ModCtrl != 0 {
			if c, ok := ctrlCode(r); ok {
				return c
			}
		}
		if mod&tcell.ModAlt != 0 {
			return "\x1b" + string(r)
		}
		return string(r)
	case tcell.KeyEnter:
		return "\r"
	case tcell.KeyTab:
		return "\t"
	case tcell.KeyEscape:
		return "\x1b"
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return "\x7f"
	}
	if sk, ok := specialKeys[k]; ok {
		if sk.final != 0 && mod != 0 {
			return fmt.Sprintf("\x1b[1;%d%c", xtermModifier(mod), sk.final)
		}
		return sk.seq
	}
	if k < 0x20 {
		return string(rune(k))
	}
	return ""
}

// KeyName names a key press the way bindings spell it, e.g. "ctrl+a", "x",
// "alt+left" or "|".
func KeyName(ev *tcell.EventKey) string {
	k, mod := ev.Key(), ev.Modifiers()
	var name string
	switch k {
	case tcell.KeyRune:
		r := ev.Rune()
		if mod&tcell.ModCtrl != 0 {
			return "ctrl+" + string(unicode.ToLower(r))
		}
		name = string(r)
		mod &^= tcell.ModShift
	case tcell.KeyEnter:
		name = "enter"
	case tcell.KeyTab:
		name = "tab"
	case tcell.KeyEscape:
		name = "esc"
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		name = "backspace"
	default:
		switch {
		case k == tcell.KeyCtrlSpace:
			return "ctrl+space"
		case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
			return "ctrl+" + string(rune('a'+k-tcell.KeyCtrlA))
		}
		sk, ok := specialKeys[k]
		if !ok {
			return ""
		}
		name = sk.name
	}
	var b strings.Builder
	if mod&tcell.ModCtrl != 0 {
		b.WriteString("ctrl+")
	}
	if mod&tcell.ModAlt != 0 {
		b.WriteString("alt+")
	}
	if mod&tcell.ModShift != 0 {
		b.WriteString("shift+")
	}
	b.WriteString(name)
	return b.String()
}

// NormalizeKeyName lowercases modifiers and named keys so "Ctrl+A" and
// "ctrl+a" compare equal. A bare character keeps its case.
func NormalizeKeyName(name string) string {
	i := strings.LastIndex(name[:max(len(name)-1, 0)], "+")
	if i < 0 {
		if utf8.RuneCountInString(name) > 1 {
			return strings.ToLower(name)
		}
		return name
	}
	mods, key := strings.ToLower(name[:i]), name[i+1:]
	if utf8.RuneCountInString(key) > 1 || strings.Contains(mods, "ctrl") {
		key = strings.ToLower(key)
	}
	return mods + "+" + key
}

func ctrlCode(r rune) (string, bool) {
	r = unicode.ToLower(r)
	switch {
	case r >= 'a' && r <= 'z':
		return string(r - 'a' + 1), true
	case r == ' ' || r == '@':
		return "\x00", true
	case r == '[':
		return "\x1b", true
	case r == '\\':
		return "\x1c", true
	case r == ']':
		return "\x1d", true
	}
	return "", false
}

// xtermModifier returns the CSI modifier parameter (1 + bitmask).
func xtermModifier(mod tcell.ModMask) int {
	n := 0
	if mod&tcell.ModShift != 0 {
		n |= 1
	}
	if mod&tcell.ModAlt != 0 {
		n |= 2
	}
	if mod&tcell.ModCtrl != 0 {
		n |= 4
	}
	return n + 1
}
