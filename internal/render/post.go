package render

import (
	"math"

	"github.com/coreman2200/stripcast/internal/color"
)

// Limiter keeps frames inside a power envelope. It runs in two stages:
//  1. Per-LED white cap: scales a pixel so R+G+B <= WhiteCap (in units of
//     full channels, 3 = no cap).
//  2. Global current budget: estimates the draw of every frame together and
//     scales them all to stay under BudgetMilliamps, easing in above Knee.
type Limiter struct {
	WhiteCap         float64 // default 3
	ChannelMilliamps float64 // full-scale draw per channel, default 20 (WS2812)
	BudgetMilliamps  float64 // 0 disables the budget stage
	Knee             float64 // fraction of budget where scaling starts, default 0.9
}

func (l Limiter) withDefaults() Limiter {
	if l.WhiteCap <= 0 {
		l.WhiteCap = 3
	}
	if l.ChannelMilliamps <= 0 {
		l.ChannelMilliamps = 20
	}
	if l.Knee <= 0 || l.Knee >= 1 {
		l.Knee = 0.9
	}
	return l
}

// Enabled reports whether Apply can change a frame.
func (l Limiter) Enabled() bool {
	l = l.withDefaults()
	return l.WhiteCap < 3 || l.BudgetMilliamps > 0
}

// Apply limits frames in place.
func (l Limiter) Apply(frames [][]color.Rgb8) {
	l = l.withDefaults()

	if l.WhiteCap < 3 {
		limit := l.WhiteCap * 255
		for _, f := range frames {
			for i, c := range f {
				s := float64(c.R) + float64(c.G) + float64(c.B)
				if s > limit && s > 0 {
					f[i] = scaleDown(c, limit/s)
				}
			}
		}
	}

	if l.BudgetMilliamps <= 0 {
		return
	}
	total := EstimateMilliamps(frames, l.ChannelMilliamps)
	if total <= 0 {
		return
	}
	ratio := total / l.BudgetMilliamps
	if ratio <= l.Knee {
		return
	}
	// soft clip: slope 1 at the knee, approaching the budget asymptotically
	span := 1 - l.Knee
	target := l.Knee + span*math.Tanh((ratio-l.Knee)/span)
	scaleFrames(frames, target/ratio)
}

// EstimateMilliamps sums channel draw across frames, linear in channel value.
func EstimateMilliamps(frames [][]color.Rgb8, channelMilliamps float64) float64 {
	var sum float64
	for _, f := range frames {
		for _, c := range f {
			sum += float64(c.R) + float64(c.G) + float64(c.B)
		}
	}
	return sum / 255 * channelMilliamps
}

func scaleFrames(frames [][]color.Rgb8, s float64) {
	if s >= 1 {
		return
	}
	for _, f := range frames {
		for i := range f {
			f[i] = scaleDown(f[i], s)
		}
	}
}

// scaleDown truncates so the estimate never rounds back over budget.
func scaleDown(c color.Rgb8, s float64) color.Rgb8 {
	return color.Rgb8{
		R: uint8(float64(c.R) * s),
		G: uint8(float64(c.G) * s),
		B: uint8(float64(c.B) * s),
	}
}
