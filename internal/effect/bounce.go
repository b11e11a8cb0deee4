package effect

import (
	"math"

	"github.com/coreman2200/stripcast/internal/color"
)

// Bounce sweeps a single lit pixel back and forth, Speed round trips per second.
type Bounce struct {
	Color color.Rgb8
	Speed float32
}

// Position returns the lit index at the given time. It may equal info.LEDs
// at the peak of the sweep, in which case nothing is lit.
func (b *Bounce) Position(info StripInfo, timeMillis uint64) int {
	half := float64(info.LEDs) / 2
	return int(math.Floor(math.Sin(seconds(timeMillis)*2*math.Pi*float64(b.Speed))*half + half))
}

func (b *Bounce) Update(info StripInfo, buf []color.Rgb8, timeMillis uint64) {
	cur := b.Position(info, timeMillis)
	for i := range buf {
		if i == cur {
			buf[i] = b.Color
		} else {
			buf[i] = color.Rgb8{}
		}
	}
}
