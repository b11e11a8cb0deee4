package strip

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Mode decides where a strip's colors come from.
type Mode uint8

const (
	// Off strips are neither rendered nor transmitted.
	Off Mode = iota
	// Effects renders the selected effect only.
	Effects
	// Dynamic renders streamed colors over black.
	Dynamic
	// Hybrid renders streamed colors over the selected effect.
	Hybrid
)

var modeNames = [...]string{"off", "effects", "dynamic", "hybrid"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

func (m Mode) Valid() bool { return int(m) < len(modeNames) }

// UsesEffects reports whether the effect engine contributes to the strip.
func (m Mode) UsesEffects() bool { return m == Effects || m == Hybrid }

// AcceptsStream reports whether datagram writes are allowed.
func (m Mode) AcceptsStream() bool { return m == Dynamic || m == Hybrid }

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(s, n) {
			return Mode(i), nil
		}
	}
	return Off, errors.Errorf("unknown strip mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
