package effect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/stripcast/internal/color"
)

var (
	red   = color.Rgb8{R: 255}
	green = color.Rgb8{G: 255}
	blue  = color.Rgb8{B: 255}
)

func render(m Mode, leds int, ms uint64) []color.Rgb8 {
	buf := make([]color.Rgb8, leds)
	for i := range buf {
		buf[i] = color.Rgb8{R: 1, G: 2, B: 3}
	}
	m.Update(StripInfo{LEDs: leds}, buf, ms)
	return buf
}

func TestColorPatternShift(t *testing.T) {
	p := &ColorPattern{Palette: []color.Rgb8{red, green, blue}, Speed: 1}

	assert.Equal(t, []color.Rgb8{red, green, blue, red, green}, render(p, 5, 0))
	// one second at speed 1 with three colors shifts by three: same frame
	assert.Equal(t, render(p, 5, 0), render(p, 5, 1000))
	// a third of a second shifts by one
	assert.Equal(t, []color.Rgb8{blue, red, green, blue, red}, render(p, 5, 334))
}

func TestColorPatternGammaCorrects(t *testing.T) {
	p := &ColorPattern{Palette: []color.Rgb8{{R: 128, G: 64, B: 10}}, Speed: 0}
	buf := render(p, 2, 1234)
	want := color.Rgb8{R: 128, G: 64, B: 10}.GammaCorrect()
	assert.Equal(t, []color.Rgb8{want, want}, buf)
}

func TestColorWheelDeterministic(t *testing.T) {
	w := NewColorWheel()
	a := render(w, 60, 4321)
	b := render(w, 60, 4321)
	assert.Equal(t, a, b)

	// at t=0 pixel 0 has hue 0: pure red after gamma
	assert.Equal(t, red, render(w, 1, 0)[0])
	// after 4s at 30 deg/s pixel 0 sits at hue 120
	assert.Equal(t, green, render(w, 1, 4000)[0])
}

func TestBouncePosition(t *testing.T) {
	b := &Bounce{Color: red, Speed: 1}
	info := StripInfo{LEDs: 10}

	assert.Equal(t, 5, b.Position(info, 0))
	assert.Equal(t, 10, b.Position(info, 250))
	assert.Equal(t, 0, b.Position(info, 750))

	buf := render(b, 10, 0)
	for i, c := range buf {
		if i == 5 {
			assert.Equal(t, red, c)
		} else {
			assert.Equal(t, color.Rgb8{}, c, "pixel %d", i)
		}
	}

	// peak of the sweep lands past the end: nothing lit
	for _, c := range render(b, 10, 250) {
		assert.Equal(t, color.Rgb8{}, c)
	}
}

func TestSolidAndChannelTest(t *testing.T) {
	s := &Solid{Color: color.Rgb8{R: 255, G: 255, B: 255}}
	for _, c := range render(s, 4, 99) {
		assert.Equal(t, color.Rgb8{R: 255, G: 255, B: 255}, c)
	}

	ct := &ChannelTest{PeriodMillis: 100}
	assert.Equal(t, red, render(ct, 3, 0)[2])
	assert.Equal(t, green, render(ct, 3, 150)[0])
	assert.Equal(t, blue, render(ct, 3, 250)[1])
	assert.Equal(t, red, render(ct, 3, 300)[1])
}

func TestGradientEnds(t *testing.T) {
	g := &Gradient{From: red, To: blue}
	buf := render(g, 5, 0)
	assert.Equal(t, red, buf[0])
	assert.Equal(t, blue, buf[4])

	one := render(g, 1, 0)
	assert.Equal(t, red, one[0])
}

func TestSelectorWrap(t *testing.T) {
	a, b, c := &Solid{Color: red}, &Solid{Color: green}, &Solid{Color: blue}
	s, err := NewSelector(Entry{"a", a}, Entry{"b", b}, Entry{"c", c})
	require.NoError(t, err)

	assert.Equal(t, 0, s.Index())
	s.Prev()
	assert.Equal(t, 2, s.Index())
	assert.Equal(t, "c", s.CurrentName())
	s.Next()
	assert.Equal(t, 0, s.Index())
	s.Set(7)
	assert.Equal(t, 1, s.Index())
	assert.Same(t, b, s.Current())
	s.Shift(-5)
	assert.Equal(t, 2, s.Index())
	s.Shift(4)
	assert.Equal(t, 0, s.Index())
	assert.Equal(t, []string{"a", "b", "c"}, s.Names())
}

func TestSelectorRequiresEffects(t *testing.T) {
	_, err := NewSelector()
	assert.Error(t, err)

	_, err = NewSelector(Entry{Name: "broken"})
	assert.Error(t, err)
}
