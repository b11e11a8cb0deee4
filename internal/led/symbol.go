package led

import "fmt"

// Symbol is one timed pulse pair on the single-wire line, laid out like an
// RMT pulse code: bits 0-14 hold the first duration in ticks, bit 15 its
// level, bits 16-30 the second duration and bit 31 its level.
type Symbol uint32

// EndMarker terminates a symbol stream. Any symbol with a zero duration
// ends transmission; EndMarker has both durations zero.
const EndMarker Symbol = 0

const maxTicks = 1<<15 - 1

// NewSymbol packs a pulse pair. Durations are truncated to 15 bits.
func NewSymbol(level0 bool, ticks0 uint16, level1 bool, ticks1 uint16) Symbol {
	s := Symbol(ticks0&maxTicks) | Symbol(ticks1&maxTicks)<<16
	if level0 {
		s |= 1 << 15
	}
	if level1 {
		s |= 1 << 31
	}
	return s
}

func (s Symbol) Level0() bool    { return s&(1<<15) != 0 }
func (s Symbol) Ticks0() uint16  { return uint16(s & maxTicks) }
func (s Symbol) Level1() bool    { return s&(1<<31) != 0 }
func (s Symbol) Ticks1() uint16  { return uint16(s>>16) & maxTicks }
func (s Symbol) IsEnd() bool     { return s.Ticks0() == 0 || s.Ticks1() == 0 }
func (s Symbol) TotalTicks() int { return int(s.Ticks0()) + int(s.Ticks1()) }

// HighTicks is the time the line is held high across the pair.
func (s Symbol) HighTicks() int {
	n := 0
	if s.Level0() {
		n += int(s.Ticks0())
	}
	if s.Level1() {
		n += int(s.Ticks1())
	}
	return n
}

func (s Symbol) String() string {
	if s == EndMarker {
		return "end"
	}
	return fmt.Sprintf("%s%d/%s%d", level(s.Level0()), s.Ticks0(), level(s.Level1()), s.Ticks1())
}

func level(b bool) string {
	if b {
		return "H"
	}
	return "L"
}
