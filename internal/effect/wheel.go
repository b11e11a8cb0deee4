package effect

import "github.com/coreman2200/stripcast/internal/color"

// ColorWheel scrolls a hue rainbow along the strip.
type ColorWheel struct {
	Saturation   float32
	Value        float32
	DegPerPixel  float32 // fraction of the wheel per pixel
	DegPerSecond float32
}

func NewColorWheel() *ColorWheel {
	return &ColorWheel{
		Saturation:   1,
		Value:        1,
		DegPerPixel:  1.0 / 500.0,
		DegPerSecond: 30,
	}
}

func (w *ColorWheel) Update(_ StripInfo, buf []color.Rgb8, timeMillis uint64) {
	t := seconds(timeMillis)
	for i := range buf {
		hue := wrap(float64(i)*float64(w.DegPerPixel)*-360+t*float64(w.DegPerSecond), 360)
		hsv := color.HsvF32{Hue: float32(hue), Saturation: w.Saturation, Value: w.Value}
		buf[i] = hsv.RGB().Rgb8().GammaCorrect()
	}
}
