package led

import (
	"time"

	"github.com/coreman2200/stripcast/internal/color"
)

// Decode recovers the bytes a symbol stream carries, stopping at the first
// end marker. Trailing symbols that do not fill a byte are dropped.
func Decode(p *Protocol, syms []Symbol) []byte {
	out := make([]byte, 0, len(syms)/8)
	var cur byte
	n := 0
	for _, s := range syms {
		if s.IsEnd() {
			break
		}
		cur <<= 1
		if p.IsHigh(s) {
			cur |= 1
		}
		n++
		if n == 8 {
			out = append(out, cur)
			cur, n = 0, 0
		}
	}
	return out
}

// DecodeColors recovers pixels, undoing the protocol's channel order.
func DecodeColors(p *Protocol, syms []Symbol) []color.Rgb8 {
	raw := Decode(p, syms)
	out := make([]color.Rgb8, len(raw)/3)
	for i := range out {
		out[i] = p.Order.toColor([3]uint8{raw[i*3], raw[i*3+1], raw[i*3+2]})
	}
	return out
}

// WireTime is how long the stream occupies the line, up to the first end
// marker and excluding the latch.
func WireTime(p *Protocol, syms []Symbol) time.Duration {
	ticks := 0
	for _, s := range syms {
		if s.IsEnd() {
			break
		}
		ticks += s.TotalTicks()
	}
	return p.ticks(ticks)
}
