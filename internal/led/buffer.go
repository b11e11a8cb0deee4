package led

import (
	"fmt"

	"github.com/coreman2200/stripcast/internal/color"
)

// Buffer is a fixed-size transmit buffer for one strip: LEDs*24 data
// symbols followed by a permanent end marker. Unwritten slots hold 0 bits.
type Buffer struct {
	proto *Protocol
	syms  []Symbol
	pos   int
}

func NewBuffer(p *Protocol, leds int) *Buffer {
	if leds < 0 {
		panic(fmt.Sprintf("led: negative buffer size %d", leds))
	}
	syms := make([]Symbol, leds*SymbolsPerColor+1)
	for i := range syms {
		syms[i] = p.Lo
	}
	syms[len(syms)-1] = EndMarker
	return &Buffer{proto: p, syms: syms}
}

// Flush rewinds the write cursor. Contents are left in place.
func (b *Buffer) Flush() { b.pos = 0 }

// WriteColor appends one pixel. Writing more pixels than the buffer was
// sized for is a programming error and panics.
func (b *Buffer) WriteColor(c color.Rgb8) {
	if b.pos+SymbolsPerColor > len(b.syms)-1 {
		panic(fmt.Sprintf("led: buffer overflow writing pixel %d of %d", b.pos/SymbolsPerColor, b.LEDs()))
	}
	b.pos += b.proto.WriteColor(b.syms[b.pos:], c)
}

// WriteColors flushes and writes a whole frame.
func (b *Buffer) WriteColors(cs []color.Rgb8) {
	b.Flush()
	for _, c := range cs {
		b.WriteColor(c)
	}
}

// Symbols is the full stream handed to a driver, end marker included.
func (b *Buffer) Symbols() []Symbol { return b.syms }

// Pos is the number of data symbols written since the last Flush.
func (b *Buffer) Pos() int { return b.pos }

// LEDs is the pixel capacity.
func (b *Buffer) LEDs() int { return (len(b.syms) - 1) / SymbolsPerColor }

func (b *Buffer) Protocol() *Protocol { return b.proto }
