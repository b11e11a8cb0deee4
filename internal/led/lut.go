package led

// spiLUT expands a data byte to 24 SPI bits, three per data bit, MSB first:
// a 1 bit becomes 110 (high two thirds) and a 0 bit 100 (high one third).
type spiLUT [256][3]byte

func newSPILUT() *spiLUT {
	var lut spiLUT
	for v := 0; v < 256; v++ {
		out := uint32(0)
		for i := 7; i >= 0; i-- {
			tri := uint32(0b100)
			if (v>>i)&1 == 1 {
				tri = 0b110
			}
			out = out<<3 | tri
		}
		lut[v][0] = byte(out >> 16)
		lut[v][1] = byte(out >> 8)
		lut[v][2] = byte(out)
	}
	return &lut
}

// expand encodes syms up to the first end marker into dst and returns the
// number of bytes written. dst must hold 3 bytes per 8 symbols, rounded up.
// A trailing partial byte is padded with 0 bits.
func (l *spiLUT) expand(p *Protocol, dst []byte, syms []Symbol) int {
	n := 0
	var cur byte
	bits := 0
	for _, s := range syms {
		if s.IsEnd() {
			break
		}
		cur <<= 1
		if p.IsHigh(s) {
			cur |= 1
		}
		bits++
		if bits == 8 {
			copy(dst[n:n+3], l[cur][:])
			n += 3
			cur, bits = 0, 0
		}
	}
	if bits > 0 {
		cur <<= uint(8 - bits)
		copy(dst[n:n+3], l[cur][:])
		n += 3
	}
	return n
}

func expandedLen(syms int) int { return (syms + 7) / 8 * 3 }
