// Package effect holds the animated color generators that fill a strip when
// it is in an effects-driven mode.
package effect

import (
	"math"

	"github.com/coreman2200/stripcast/internal/color"
)

// StripInfo is the geometry an effect renders for.
type StripInfo struct {
	LEDs     int
	Reversed bool
}

// Mode fills buf (len == info.LEDs) for the given time in milliseconds.
// Implementations must write every element and depend only on their own
// parameters, the geometry and the time.
type Mode interface {
	Update(info StripInfo, buf []color.Rgb8, timeMillis uint64)
}

func seconds(ms uint64) float64 { return float64(ms) / 1000 }

// wrap returns x mod m in [0, m).
func wrap(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}

func fill(buf []color.Rgb8, c color.Rgb8) {
	for i := range buf {
		buf[i] = c
	}
}
