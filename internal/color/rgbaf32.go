package color

// RgbaF32 is a premultiplied-alpha floating point color.
type RgbaF32 struct {
	R, G, B, A float32
}

// NewRgbaF32 premultiplies straight-alpha components.
func NewRgbaF32(r, g, b, a float32) RgbaF32 {
	return RgbaF32{r * a, g * a, b * a, a}
}

// NewRgbaF32Premultiplied stores already premultiplied components as given.
func NewRgbaF32Premultiplied(r, g, b, a float32) RgbaF32 {
	return RgbaF32{r, g, b, a}
}

// FromRgb8 returns an opaque color.
func FromRgb8(c Rgb8) RgbaF32 {
	f := c.F32()
	return RgbaF32{f.R, f.G, f.B, 1}
}

// FromRgba8 converts 8-bit straight alpha to premultiplied float.
func FromRgba8(r, g, b, a uint8) RgbaF32 {
	return NewRgbaF32(float32(r)/255, float32(g)/255, float32(b)/255, float32(a)/255)
}

// BlendOver composites c over bg: out = c + bg*(1-c.A), alpha included.
func (c RgbaF32) BlendOver(bg RgbaF32) RgbaF32 {
	inv := 1 - c.A
	return RgbaF32{
		R: c.R + bg.R*inv,
		G: c.G + bg.G*inv,
		B: c.B + bg.B*inv,
		A: c.A + bg.A*inv,
	}
}

// Rgb8 drops alpha. Being premultiplied, this is the color composited over black.
func (c RgbaF32) Rgb8() Rgb8 {
	return Rgb8{ToU8(c.R), ToU8(c.G), ToU8(c.B)}
}
