package color

// RgbF32 is a floating point sRGB color. Arithmetic clamps to [0,1].
type RgbF32 struct {
	R, G, B float32
}

func GrayF32(x float32) RgbF32 { return RgbF32{x, x, x} }

func (c RgbF32) Add(o RgbF32) RgbF32 {
	return RgbF32{min(1, c.R+o.R), min(1, c.G+o.G), min(1, c.B+o.B)}
}

func (c RgbF32) Sub(o RgbF32) RgbF32 {
	return RgbF32{max(0, c.R-o.R), max(0, c.G-o.G), max(0, c.B-o.B)}
}

// Mul multiplies componentwise.
func (c RgbF32) Mul(o RgbF32) RgbF32 {
	return RgbF32{clamp01(c.R * o.R), clamp01(c.G * o.G), clamp01(c.B * o.B)}
}

func (c RgbF32) Scale(x float32) RgbF32 {
	return RgbF32{clamp01(c.R * x), clamp01(c.G * x), clamp01(c.B * x)}
}

// Lerp interpolates from c towards o. The result is not clamped.
func (c RgbF32) Lerp(o RgbF32, t float32) RgbF32 {
	return RgbF32{lerp(c.R, o.R, t), lerp(c.G, o.G, t), lerp(c.B, o.B, t)}
}

func (c RgbF32) Rgb8() Rgb8 {
	return Rgb8{ToU8(c.R), ToU8(c.G), ToU8(c.B)}
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
