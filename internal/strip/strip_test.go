package strip

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/stripcast/internal/color"
	"github.com/coreman2200/stripcast/internal/effect"
)

// ramp writes pixel index into the red channel.
type ramp struct{}

func (ramp) Update(_ effect.StripInfo, buf []color.Rgb8, _ uint64) {
	for i := range buf {
		buf[i] = color.Rgb8{R: uint8(i)}
	}
}

func TestParseMode(t *testing.T) {
	for i, name := range []string{"off", "effects", "dynamic", "hybrid"} {
		m, err := ParseMode(name)
		require.NoError(t, err)
		assert.Equal(t, Mode(i), m)
		assert.Equal(t, name, m.String())
	}
	m, err := ParseMode("Hybrid")
	require.NoError(t, err)
	assert.Equal(t, Hybrid, m)

	_, err = ParseMode("strobe")
	assert.Error(t, err)
	assert.False(t, Mode(9).Valid())
	assert.Equal(t, "mode(9)", Mode(9).String())
}

func TestNewStateDefaults(t *testing.T) {
	s := NewState("a", effect.StripInfo{LEDs: 10})
	assert.Equal(t, Hybrid, s.Mode)
	assert.True(t, s.Active())

	e := NewState("b", effect.StripInfo{})
	assert.Equal(t, Off, e.Mode)
	assert.False(t, e.Active())
}

func TestComposeEffects(t *testing.T) {
	s := NewState("a", effect.StripInfo{LEDs: 4})
	s.Mode = Effects
	s.Colors[0] = color.NewRgbaF32(0, 0, 1, 1)
	out := s.Compose(ramp{}, 0, make([]color.Rgb8, MaxLEDs))

	require.Len(t, out, 4)
	// streamed layer is ignored in Effects mode
	assert.Equal(t, color.Rgb8{R: 0}, out[0])
	assert.Equal(t, color.Rgb8{R: 3}, out[3])
}

func TestComposeReversed(t *testing.T) {
	s := NewState("a", effect.StripInfo{LEDs: 4, Reversed: true})
	s.Mode = Effects
	out := s.Compose(ramp{}, 0, make([]color.Rgb8, 4))
	assert.Equal(t, []color.Rgb8{{R: 3}, {R: 2}, {R: 1}, {R: 0}}, out)
}

func TestComposeDynamicOverBlack(t *testing.T) {
	s := NewState("a", effect.StripInfo{LEDs: 3})
	s.Mode = Dynamic
	s.Colors[0] = color.FromRgb8(color.Rgb8{R: 10, G: 20, B: 30})
	s.Colors[1] = color.NewRgbaF32(1, 1, 1, 0.5)

	out := s.Compose(ramp{}, 0, make([]color.Rgb8, 3))
	assert.Equal(t, color.Rgb8{R: 10, G: 20, B: 30}, out[0])
	assert.Equal(t, color.Rgb8{R: 128, G: 128, B: 128}, out[1])
	assert.Equal(t, color.Rgb8{}, out[2])
}

func TestComposeHybrid(t *testing.T) {
	s := NewState("a", effect.StripInfo{LEDs: 3})
	s.Colors[1] = color.FromRgb8(color.Rgb8{B: 200})

	out := s.Compose(ramp{}, 0, make([]color.Rgb8, 3))
	// transparent keeps the effect, opaque replaces it
	assert.Equal(t, color.Rgb8{R: 0}, out[0])
	assert.Equal(t, color.Rgb8{B: 200}, out[1])
	assert.Equal(t, color.Rgb8{R: 2}, out[2])

	s.Clear()
	out = s.Compose(ramp{}, 0, make([]color.Rgb8, 3))
	assert.Equal(t, color.Rgb8{R: 1}, out[1])
}

func TestSetWith(t *testing.T) {
	sel, err := effect.NewSelector(effect.Entry{Name: "ramp", Mode: ramp{}})
	require.NoError(t, err)
	set := NewSet([]State{
		NewState("a", effect.StripInfo{LEDs: 2}),
		NewState("b", effect.StripInfo{}),
	}, sel)

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []Mode{Hybrid, Off}, set.Modes())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set.With(func(strips []State, fx *effect.Selector) {
				fx.Next()
				strips[0].Colors[0].A += 1
			})
		}()
	}
	wg.Wait()

	set.With(func(strips []State, fx *effect.Selector) {
		assert.Equal(t, float32(50), strips[0].Colors[0].A)
		assert.Equal(t, 0, fx.Index())
	})
}
