package effect

import (
	"math"

	"github.com/coreman2200/stripcast/internal/color"
)

// Solid fills the strip with one color. A positive PulseHz modulates
// brightness with a sine between 0 and 1.
type Solid struct {
	Color   color.Rgb8
	PulseHz float64
}

func (s *Solid) Update(_ StripInfo, buf []color.Rgb8, timeMillis uint64) {
	c := s.Color
	if s.PulseHz > 0 {
		scale := 0.5 + 0.5*math.Sin(2*math.Pi*s.PulseHz*seconds(timeMillis))
		c = c.Brightness(float32(scale))
	}
	fill(buf, c.GammaCorrect())
}

// Gradient blends linearly from From at pixel 0 to To at the last pixel.
type Gradient struct {
	From, To color.Rgb8
}

func (g *Gradient) Update(_ StripInfo, buf []color.Rgb8, _ uint64) {
	a, b := g.From.F32(), g.To.F32()
	last := len(buf) - 1
	for i := range buf {
		t := float32(0)
		if last > 0 {
			t = float32(i) / float32(last)
		}
		buf[i] = a.Lerp(b, t).Rgb8().GammaCorrect()
	}
}

// ChannelTest cycles pure red, green and blue, one per Period, to check
// wiring and color order on a strip.
type ChannelTest struct {
	PeriodMillis uint64
}

var channelTestColors = [3]color.Rgb8{{R: 255}, {G: 255}, {B: 255}}

func (c *ChannelTest) Update(_ StripInfo, buf []color.Rgb8, timeMillis uint64) {
	period := c.PeriodMillis
	if period == 0 {
		period = 1000
	}
	fill(buf, channelTestColors[(timeMillis/period)%3])
}
