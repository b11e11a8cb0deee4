package color

import (
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// ParseHex parses "#rrggbb" or "#rgb".
func ParseHex(s string) (Rgb8, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Rgb8{}, errors.Wrapf(err, "parse color %q", s)
	}
	r, g, b := c.RGB255()
	return Rgb8{r, g, b}, nil
}

// Hex formats c as "#rrggbb".
func (c Rgb8) Hex() string {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hex()
}
