package color

import "math"

// HsvF32 is a floating point HSV color. Hue is in degrees and may be any
// value; saturation and value are clamped to [0,1] on conversion.
type HsvF32 struct {
	Hue, Saturation, Value float32
}

// RGB converts using the six-sector algorithm.
func (h HsvF32) RGB() RgbF32 {
	s := clamp01(h.Saturation)
	v := clamp01(h.Value)
	if s == 0 {
		return GrayF32(v)
	}

	hue := math.Mod(float64(h.Hue), 360)
	if hue < 0 {
		hue += 360
	}
	c := v * s
	hh := hue / 60
	x := c * float32(1-math.Abs(math.Mod(hh, 2)-1))

	var r, g, b float32
	switch int(math.Floor(hh)) % 6 {
	case 0:
		r, g, b = c, x, 0
	case 1:
		r, g, b = x, c, 0
	case 2:
		r, g, b = 0, c, x
	case 3:
		r, g, b = 0, x, c
	case 4:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	m := v - c
	return RgbF32{r + m, g + m, b + m}
}
