package workspace

// bellScanner finds BEL characters in terminal output. A BEL that ends an
// OSC sequence (ESC ] ... BEL) is a terminator, not a bell. State carries
// across chunks.
type bellScanner struct {
	state scanState
}

type scanState int

const (
	scanGround scanState = iota
	scanEscape
	scanOSC
	scanOSCEscape
)

const (
	bel = 0x07
	esc = 0x1b
)

// scan reports whether chunk rings the bell.
func (b *bellScanner) scan(chunk string) bool {
	rang := false
	for i := 0; i < len(chunk); i++ {
		c := chunk[i]
		switch b.state {
		case scanGround:
			switch c {
			case bel:
				rang = true
			case esc:
				b.state = scanEscape
			}
		case scanEscape:
			switch c {
			case ']':
				b.state = scanOSC
			case esc:
			default:
				b.state = scanGround
			}
		case scanOSC:
			switch c {
			case bel:
				b.state = scanGround
			case esc:
				b.state = scanOSCEscape
			}
		case scanOSCEscape:
			if c == '\\' {
				b.state = scanGround
			} else {
				b.state = scanOSC
			}
		}
	}
	return rang
}
