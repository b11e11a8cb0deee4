package color

import "math"

// Rgb8 is an 8-bit per channel sRGB color.
type Rgb8 struct {
	R, G, B uint8
}

func Gray8(x uint8) Rgb8 { return Rgb8{x, x, x} }

// GammaCorrect maps every channel through the gamma table.
func (c Rgb8) GammaCorrect() Rgb8 {
	return Rgb8{gamma[c.R], gamma[c.G], gamma[c.B]}
}

// Brightness scales every channel by x, rounding to nearest and clamping to [0,255].
func (c Rgb8) Brightness(x float32) Rgb8 {
	return Rgb8{scale8(c.R, x), scale8(c.G, x), scale8(c.B, x)}
}

// F32 returns the color with channels in [0,1].
func (c Rgb8) F32() RgbF32 {
	return RgbF32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255}
}

func scale8(c uint8, x float32) uint8 {
	v := float32(c) * x
	if v < 0 {
		v = 0
	} else if v > 255 {
		v = 255
	}
	return uint8(math.Round(float64(v)))
}

// ToU8 converts a [0,1] channel to [0,255], rounding to nearest.
func ToU8(x float32) uint8 {
	v := math.Round(float64(x) * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
