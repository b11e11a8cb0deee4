// Package strip holds per-strip render state and the lock that every
// producer and the render loop share.
package strip

import (
	"github.com/coreman2200/stripcast/internal/color"
	"github.com/coreman2200/stripcast/internal/effect"
)

// MaxLEDs is the longest strip supported.
const MaxLEDs = 300

// State is one strip's record. Colors holds the streamed layer; only the
// first Info.LEDs entries are meaningful.
type State struct {
	Name   string
	Colors [MaxLEDs]color.RgbaF32
	Info   effect.StripInfo
	Mode   Mode
}

// NewState returns a Hybrid strip, or an Off one when it has no LEDs.
func NewState(name string, info effect.StripInfo) State {
	s := State{Name: name, Info: info, Mode: Hybrid}
	if s.Empty() {
		s.Mode = Off
	}
	return s
}

func (s *State) Empty() bool { return s.Info.LEDs == 0 }

// Active reports whether the render loop should produce a frame for s.
func (s *State) Active() bool { return !s.Empty() && s.Mode != Off }

// Compose renders the final colors into out, which must hold at least
// Info.LEDs entries, and returns out[:Info.LEDs].
//
// Effect output is mirrored for reversed strips so effects run from the far
// end. Streamed colors are addressed physically and are never mirrored.
func (s *State) Compose(fx effect.Mode, timeMillis uint64, out []color.Rgb8) []color.Rgb8 {
	n := s.Info.LEDs
	out = out[:n]

	if s.Mode.UsesEffects() && fx != nil {
		fx.Update(s.Info, out, timeMillis)
		if s.Info.Reversed {
			for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
				out[i], out[j] = out[j], out[i]
			}
		}
	} else {
		for i := range out {
			out[i] = color.Rgb8{}
		}
	}

	if s.Mode.AcceptsStream() {
		for i := range out {
			out[i] = s.Colors[i].BlendOver(color.FromRgb8(out[i])).Rgb8()
		}
	}
	return out
}

// Clear resets the streamed layer to transparent.
func (s *State) Clear() {
	s.Colors = [MaxLEDs]color.RgbaF32{}
}
