package pty

import (
	"strings"
	"unicode/utf8"
)

// utf8Carry turns a byte stream into valid UTF-8 text. A multi-byte
// sequence split across two reads is held back until it completes; other
// invalid bytes become U+FFFD.
type utf8Carry struct {
	pending []byte
}

func (c *utf8Carry) decode(p []byte) string {
	buf := append(c.pending, p...)
	cut := len(buf)
	for i := len(buf) - 1; i >= 0 && i >= len(buf)-(utf8.UTFMax-1); i-- {
		if utf8.RuneStart(buf[i]) {
			if !utf8.FullRune(buf[i:]) {
				cut = i
			}
			break
		}
	}
	c.pending = append(c.pending[:0:0], buf[cut:]...)
	return strings.ToValidUTF8(string(buf[:cut]), string(utf8.RuneError))
}

// flush returns whatever is still held back.
func (c *utf8Carry) flush() string {
	if len(c.pending) == 0 {
		return ""
	}
	s := strings.ToValidUTF8(string(c.pending), string(utf8.RuneError))
	c.pending = nil
	return s
}
