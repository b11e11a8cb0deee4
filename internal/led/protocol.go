package led

import (
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/coreman2200/stripcast/internal/color"
)

// SymbolsPerColor is the number of symbols one pixel occupies on the wire.
const SymbolsPerColor = 24

// Order is the channel sequence on the wire, e.g. "GRB".
type Order [3]byte

var (
	GRB = Order{'G', 'R', 'B'}
	RGB = Order{'R', 'G', 'B'}
)

// ParseOrder accepts any permutation of R, G and B.
func ParseOrder(s string) (Order, error) {
	s = strings.ToUpper(s)
	if len(s) != 3 || !strings.ContainsRune(s, 'R') || !strings.ContainsRune(s, 'G') || !strings.ContainsRune(s, 'B') {
		return Order{}, errors.Errorf("invalid color order %q", s)
	}
	return Order{s[0], s[1], s[2]}, nil
}

func (o Order) String() string { return string(o[:]) }

// channels returns c's channels in wire order.
func (o Order) channels(c color.Rgb8) [3]uint8 {
	var v [3]uint8
	for i, ch := range o {
		v[i] = pick(c, ch)
	}
	return v
}

// toColor rebuilds a color from channels in wire order.
func (o Order) toColor(v [3]uint8) color.Rgb8 {
	var c color.Rgb8
	for i, ch := range o {
		switch ch {
		case 'R':
			c.R = v[i]
		case 'G':
			c.G = v[i]
		case 'B':
			c.B = v[i]
		}
	}
	return c
}

func pick(c color.Rgb8, ch byte) uint8 {
	switch ch {
	case 'R':
		return c.R
	case 'B':
		return c.B
	default:
		return c.G
	}
}

// Protocol describes a single-wire LED chip's bit timing.
type Protocol struct {
	Name   string
	TickHz uint32 // symbol duration unit
	Lo, Hi Symbol // a 0 bit and a 1 bit
	Latch  time.Duration
	Order  Order
}

// WS2812B timing at an 80 MHz tick: 0 = 350ns high / 800ns low,
// 1 = 700ns high / 600ns low.
var WS2812B = Protocol{
	Name:   "ws2812b",
	TickHz: 80_000_000,
	Lo:     NewSymbol(true, 28, false, 64),
	Hi:     NewSymbol(true, 56, false, 48),
	Latch:  300 * time.Microsecond,
	Order:  GRB,
}

// SK6812 (RGB variant) timing at an 80 MHz tick.
var SK6812 = Protocol{
	Name:   "sk6812",
	TickHz: 80_000_000,
	Lo:     NewSymbol(true, 24, false, 72),
	Hi:     NewSymbol(true, 48, false, 48),
	Latch:  80 * time.Microsecond,
	Order:  GRB,
}

// LookupProtocol finds a built-in protocol by name and applies order when
// it is non-empty.
func LookupProtocol(name, order string) (Protocol, error) {
	var p Protocol
	switch strings.ToLower(name) {
	case "", WS2812B.Name, "ws2812":
		p = WS2812B
	case SK6812.Name:
		p = SK6812
	default:
		return Protocol{}, errors.Errorf("unknown LED protocol %q", name)
	}
	if order != "" {
		o, err := ParseOrder(order)
		if err != nil {
			return Protocol{}, err
		}
		p.Order = o
	}
	return p, nil
}

// EncodeByte writes 8 symbols for v, most significant bit first, and
// returns the number written.
func (p *Protocol) EncodeByte(dst []Symbol, v uint8) int {
	_ = dst[7]
	for i := 0; i < 8; i++ {
		if v&0x80 != 0 {
			dst[i] = p.Hi
		} else {
			dst[i] = p.Lo
		}
		v <<= 1
	}
	return 8
}

// WriteColor writes 24 symbols for c in wire order.
func (p *Protocol) WriteColor(dst []Symbol, c color.Rgb8) int {
	ch := p.Order.channels(c)
	p.EncodeByte(dst[0:8], ch[0])
	p.EncodeByte(dst[8:16], ch[1])
	p.EncodeByte(dst[16:24], ch[2])
	return SymbolsPerColor
}

// BitPeriod is the duration of one data bit.
func (p *Protocol) BitPeriod() time.Duration {
	return p.ticks(p.Lo.TotalTicks())
}

// BitRate is the number of data bits per second.
func (p *Protocol) BitRate() float64 {
	return float64(p.TickHz) / float64(p.Lo.TotalTicks())
}

// IsHigh classifies s as a 1 bit by its high time, splitting halfway
// between the protocol's 0 and 1 high times.
func (p *Protocol) IsHigh(s Symbol) bool {
	return 2*s.HighTicks() > p.Lo.HighTicks()+p.Hi.HighTicks()
}

func (p *Protocol) ticks(n int) time.Duration {
	return time.Duration(math.Round(float64(n) * float64(time.Second) / float64(p.TickHz)))
}
