package render

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/stripcast/internal/color"
	"github.com/coreman2200/stripcast/internal/diagnostics"
	"github.com/coreman2200/stripcast/internal/effect"
	"github.com/coreman2200/stripcast/internal/led"
	"github.com/coreman2200/stripcast/internal/strip"
)

// constant fills every pixel with one color, without gamma.
type constant struct{ c color.Rgb8 }

func (f constant) Update(_ effect.StripInfo, buf []color.Rgb8, _ uint64) {
	for i := range buf {
		buf[i] = f.c
	}
}

// fakeDriver decodes what it is sent and can be told to fail.
type fakeDriver struct {
	proto *led.Protocol
	fail  error
	sent  [][]color.Rgb8
	calls int
}

func (d *fakeDriver) Transmit(syms []led.Symbol) error {
	d.calls++
	if d.fail != nil {
		return d.fail
	}
	d.sent = append(d.sent, led.DecodeColors(d.proto, syms))
	return nil
}

func (d *fakeDriver) Close() error { return nil }

type recordObserver struct {
	mu     sync.Mutex
	frames []Frame
}

func (o *recordObserver) OnFrame(f Frame) {
	o.mu.Lock()
	o.frames = append(o.frames, f)
	o.mu.Unlock()
}

type recordSink struct{ got []diagnostics.Diagnostic }

func (s *recordSink) Push(d diagnostics.Diagnostic) { s.got = append(s.got, d) }

func newTestSet(t *testing.T, leds ...int) *strip.Set {
	t.Helper()
	sel, err := effect.NewSelector(effect.Entry{Name: "red", Mode: constant{color.Rgb8{R: 200}}})
	require.NoError(t, err)
	strips := make([]strip.State, len(leds))
	for i, n := range leds {
		strips[i] = strip.NewState("s"+string(rune('a'+i)), effect.StripInfo{LEDs: n})
	}
	return strip.NewSet(strips, sel)
}

func newTestChannel(idx, leds int) (*Channel, *fakeDriver) {
	p := led.WS2812B
	d := &fakeDriver{proto: &p}
	return NewChannel(idx, leds, &p, d), d
}

func TestNewEngineValidatesChannels(t *testing.T) {
	set := newTestSet(t, 4)

	c, _ := newTestChannel(1, 4)
	_, err := NewEngine(set, []*Channel{c}, Options{})
	assert.Error(t, err)

	c = &Channel{Strip: 0}
	_, err = NewEngine(set, []*Channel{c}, Options{})
	assert.Error(t, err)

	c, _ = newTestChannel(0, 4)
	e, err := NewEngine(set, []*Channel{c}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "sa", c.Name())
	assert.Len(t, e.Channels(), 1)
}

func TestFrameIdleWhenAllOff(t *testing.T) {
	set := newTestSet(t, 4, 0)
	set.With(func(strips []strip.State, _ *effect.Selector) {
		strips[0].Mode = strip.Off
	})
	c, d := newTestChannel(0, 4)
	e, err := NewEngine(set, []*Channel{c}, Options{IdleDelay: 250 * time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, e.Frame())
	assert.Zero(t, d.calls)
}

func TestFrameComposesAndWaitsLatch(t *testing.T) {
	set := newTestSet(t, 3, 5)
	set.With(func(strips []strip.State, _ *effect.Selector) {
		strips[1].Mode = strip.Dynamic
		strips[1].Colors[2] = color.NewRgbaF32(0, 0, 1, 1)
	})
	c0, d0 := newTestChannel(0, 3)
	c1, d1 := newTestChannel(1, 5)
	e, err := NewEngine(set, []*Channel{c0, c1}, Options{})
	require.NoError(t, err)

	wait := e.Frame()
	assert.LessOrEqual(t, wait, led.WS2812B.Latch)
	assert.GreaterOrEqual(t, wait, time.Duration(0))

	require.Len(t, d0.sent, 1)
	assert.Equal(t, []color.Rgb8{{R: 200}, {R: 200}, {R: 200}}, d0.sent[0])

	require.Len(t, d1.sent, 1)
	want := make([]color.Rgb8, 5)
	want[2] = color.Rgb8{B: 255}
	assert.Equal(t, want, d1.sent[0])
}

// fakeClock advances by step every time a steppingDriver transmits.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

type steppingDriver struct {
	*fakeDriver
	clock *fakeClock
	step  time.Duration
}

func (d steppingDriver) Transmit(syms []led.Symbol) error {
	d.clock.t = d.clock.t.Add(d.step)
	return d.fakeDriver.Transmit(syms)
}

func newClockedEngine(t *testing.T, step time.Duration, protos ...led.Protocol) (*Engine, []*fakeDriver) {
	t.Helper()
	leds := make([]int, len(protos))
	for i := range leds {
		leds[i] = 2
	}
	set := newTestSet(t, leds...)
	clock := &fakeClock{t: time.Unix(1000, 0)}
	var chans []*Channel
	var drivers []*fakeDriver
	for i := range protos {
		p := protos[i]
		d := &fakeDriver{proto: &p}
		chans = append(chans, NewChannel(i, 2, &p, steppingDriver{fakeDriver: d, clock: clock, step: step}))
		drivers = append(drivers, d)
	}
	e, err := NewEngine(set, chans, Options{})
	require.NoError(t, err)
	e.now = clock.now
	return e, drivers
}

func TestLatchMeasuredFromFirstTransmission(t *testing.T) {
	step := 50 * time.Microsecond

	e, _ := newClockedEngine(t, step, led.WS2812B, led.WS2812B, led.WS2812B)
	// First completes at +50us, the frame ends at +150us.
	assert.Equal(t, led.WS2812B.Latch-2*step, e.Frame())

	e, drivers := newClockedEngine(t, step, led.WS2812B, led.WS2812B, led.WS2812B)
	drivers[0].fail = errors.New("spi gone")
	// The failed strip does not count; the first success is at +100us.
	assert.Equal(t, led.WS2812B.Latch-step, e.Frame())

	e, _ = newClockedEngine(t, step, led.SK6812, led.WS2812B)
	// The longest latch of the transmitted protocols is waited out.
	assert.Equal(t, led.WS2812B.Latch-step, e.Frame())

	e, _ = newClockedEngine(t, 200*time.Microsecond, led.WS2812B, led.WS2812B, led.WS2812B)
	assert.Equal(t, time.Duration(0), e.Frame())
}

func TestFrameAppliesBrightnessAndLimiter(t *testing.T) {
	set := newTestSet(t, 2)
	c, d := newTestChannel(0, 2)
	e, err := NewEngine(set, []*Channel{c}, Options{Brightness: 0.5})
	require.NoError(t, err)

	e.Frame()
	require.Len(t, d.sent, 1)
	assert.Equal(t, color.Rgb8{R: 100}, d.sent[0][0])

	set = newTestSet(t, 2)
	c, d = newTestChannel(0, 2)
	e, err = NewEngine(set, []*Channel{c}, Options{Limiter: Limiter{BudgetMilliamps: 10}})
	require.NoError(t, err)

	e.Frame()
	require.Len(t, d.sent, 1)
	assert.LessOrEqual(t, EstimateMilliamps(d.sent, 20), 10.0)
}

func TestFailingChannelDegradesAndRetries(t *testing.T) {
	set := newTestSet(t, 2, 2)
	bad, badDrv := newTestChannel(0, 2)
	good, goodDrv := newTestChannel(1, 2)
	badDrv.fail = errors.New("bus gone")
	sink := &recordSink{}

	now := time.Unix(1000, 0)
	e, err := NewEngine(set, []*Channel{bad, good}, Options{DegradedRetry: time.Second, Diagnostics: sink})
	require.NoError(t, err)
	e.now = func() time.Time { return now }

	e.Frame()
	assert.True(t, bad.Degraded())
	assert.False(t, good.Degraded())
	assert.Equal(t, 1, badDrv.calls)
	assert.Len(t, goodDrv.sent, 1)
	require.Len(t, sink.got, 1)
	assert.Equal(t, diagnostics.StripDegraded, sink.got[0].Code)

	// Skipped until the retry interval passes.
	now = now.Add(500 * time.Millisecond)
	e.Frame()
	assert.Equal(t, 1, badDrv.calls)
	assert.Len(t, goodDrv.sent, 2)

	badDrv.fail = nil
	now = now.Add(time.Second)
	e.Frame()
	assert.False(t, bad.Degraded())
	assert.Equal(t, 2, badDrv.calls)
	assert.Len(t, badDrv.sent, 1)
	require.Len(t, sink.got, 2)
	assert.Equal(t, diagnostics.StripRecovered, sink.got[1].Code)
}

func TestAllChannelsFailingIsIdle(t *testing.T) {
	set := newTestSet(t, 2)
	c, d := newTestChannel(0, 2)
	d.fail = errors.New("nope")
	e, err := NewEngine(set, []*Channel{c}, Options{IdleDelay: time.Second})
	require.NoError(t, err)

	assert.Equal(t, time.Second, e.Frame())
	assert.True(t, c.Degraded())
	// DegradedRetry 0 keeps it off.
	e.Frame()
	assert.Equal(t, 1, d.calls)
}

func TestObserverSeesFrames(t *testing.T) {
	set := newTestSet(t, 2, 2)
	set.With(func(strips []strip.State, _ *effect.Selector) {
		strips[1].Mode = strip.Off
	})
	c0, _ := newTestChannel(0, 2)
	c1, _ := newTestChannel(1, 2)
	obs := &recordObserver{}
	e, err := NewEngine(set, []*Channel{c0, c1}, Options{Observer: obs})
	require.NoError(t, err)

	e.Frame()
	e.Frame()
	require.Len(t, obs.frames, 2)
	f := obs.frames[1]
	assert.Equal(t, uint64(2), f.ID)
	assert.Equal(t, "red", f.Effect)
	require.Len(t, f.Strips, 2)
	assert.Equal(t, strip.Hybrid, f.Strips[0].Mode)
	assert.Equal(t, []color.Rgb8{{R: 200}, {R: 200}}, f.Strips[0].Colors)
	assert.Equal(t, strip.Off, f.Strips[1].Mode)
	assert.Nil(t, f.Strips[1].Colors)
}
