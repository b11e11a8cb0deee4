package effect

import (
	"math"

	"github.com/coreman2200/stripcast/internal/color"
)

// ColorPattern repeats a palette along the strip and marches it forward
// Speed palette lengths per second.
type ColorPattern struct {
	Palette []color.Rgb8
	Speed   float32
}

func (p *ColorPattern) Update(_ StripInfo, buf []color.Rgb8, timeMillis uint64) {
	n := len(p.Palette)
	if n == 0 {
		fill(buf, color.Rgb8{})
		return
	}
	shift := int(math.Floor(seconds(timeMillis) * float64(p.Speed) * float64(n)))
	for i := range buf {
		idx := (i - shift) % n
		if idx < 0 {
			idx += n
		}
		buf[i] = p.Palette[idx].GammaCorrect()
	}
}
