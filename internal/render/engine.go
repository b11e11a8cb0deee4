// Package render runs the transmit loop: compose every active strip under
// the strip lock, encode it, release the lock, push the symbol streams to
// the drivers and wait out the latch.
package render

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/stripcast/internal/color"
	"github.com/coreman2200/stripcast/internal/diagnostics"
	"github.com/coreman2200/stripcast/internal/effect"
	"github.com/coreman2200/stripcast/internal/led"
	"github.com/coreman2200/stripcast/internal/strip"
)

// DefaultIdleDelay is the wait after a frame that transmitted nothing.
const DefaultIdleDelay = time.Second

// Channel binds one strip to its output hardware.
type Channel struct {
	Strip  int // index into the strip.Set
	Driver led.Driver
	Buffer *led.Buffer

	name     string
	mode     strip.Mode
	work     []color.Rgb8
	frame    []color.Rgb8
	pending  bool
	degraded atomic.Bool
	since    time.Time
}

// NewChannel sizes the transmit buffer for leds pixels of protocol p.
func NewChannel(stripIndex int, leds int, p *led.Protocol, d led.Driver) *Channel {
	return &Channel{
		Strip:  stripIndex,
		Driver: d,
		Buffer: led.NewBuffer(p, leds),
		work:   make([]color.Rgb8, strip.MaxLEDs),
	}
}

// Degraded reports whether the channel is being skipped after a failure.
// It is safe to call from any goroutine.
func (c *Channel) Degraded() bool { return c.degraded.Load() }

// Name is the strip name, resolved when the engine is built.
func (c *Channel) Name() string { return c.name }

// StripFrame is one strip's output for observers.
type StripFrame struct {
	Index  int          `json:"index"`
	Name   string       `json:"name"`
	Mode   strip.Mode   `json:"mode"`
	Colors []color.Rgb8 `json:"-"`
}

// Frame is handed to the Observer after every iteration that rendered.
type Frame struct {
	ID     uint64
	Time   time.Time
	Effect string
	Strips []StripFrame
}

// Observer watches rendered output. OnFrame runs on the render goroutine
// after the lock is released and must not block.
type Observer interface {
	OnFrame(f Frame)
}

type Options struct {
	IdleDelay     time.Duration
	DegradedRetry time.Duration // 0 keeps a failed channel off until restart
	Brightness    float32       // 0 or 1 leaves colors untouched
	Limiter       Limiter
	Pin           bool
	Core          int // CPU to pin the loop to when Pin is set
	Observer      Observer
	Diagnostics   diagnostics.Sink
}

// Engine owns the transmit buffers and drivers; only its goroutine touches them.
type Engine struct {
	set   *strip.Set
	chans []*Channel
	opts  Options
	start time.Time
	now   func() time.Time

	frameID uint64
}

func NewEngine(set *strip.Set, chans []*Channel, opts Options) (*Engine, error) {
	for i, c := range chans {
		if c.Strip < 0 || c.Strip >= set.Len() {
			return nil, errors.Errorf("channel %d references strip %d of %d", i, c.Strip, set.Len())
		}
		if c.Driver == nil || c.Buffer == nil {
			return nil, errors.Errorf("channel %d has no driver or buffer", i)
		}
		if c.Buffer.LEDs() > strip.MaxLEDs {
			return nil, errors.Errorf("channel %d sized for %d LEDs, max %d", i, c.Buffer.LEDs(), strip.MaxLEDs)
		}
	}
	if opts.IdleDelay <= 0 {
		opts.IdleDelay = DefaultIdleDelay
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = diagnostics.Discard
	}
	set.With(func(strips []strip.State, _ *effect.Selector) {
		for _, c := range chans {
			c.name = strips[c.Strip].Name
		}
	})
	return &Engine{set: set, chans: chans, opts: opts, start: time.Now(), now: time.Now}, nil
}

// Run repeats Frame, sleeping the returned wait, until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	if e.opts.Pin {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := pinThread(e.opts.Core); err != nil {
			log.Warn().Err(err).Msg("render loop not pinned")
		} else {
			log.Info().Int("cpu", e.opts.Core).Msg("render loop pinned")
		}
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		timer.Reset(e.Frame())
	}
}

// Frame runs one iteration and returns how long to wait before the next.
//
// Drivers are called in channel order outside the lock. The latch wait is
// measured from the first successful transmission only: later strips finish
// their own wire time during the earlier strips' latch, so the first
// strip's latch covers them. The longest latch of the transmitted protocols
// is used.
func (e *Engine) Frame() time.Duration {
	now := e.now()
	ms := uint64(now.Sub(e.start) / time.Millisecond)

	renderStart := time.Now()
	var effectName string
	rendered := 0
	e.set.With(func(strips []strip.State, effects *effect.Selector) {
		effectName = effects.CurrentName()
		fx := effects.Current()
		for _, c := range e.chans {
			c.pending = false
			s := &strips[c.Strip]
			c.mode = s.Mode
			if c.degraded.Load() && !e.retry(c, now) {
				continue
			}
			if !s.Active() {
				continue
			}
			n := min(s.Info.LEDs, c.Buffer.LEDs())
			c.frame = s.Compose(fx, ms, c.work)[:n]
			c.pending = true
			rendered++
		}
		if rendered == 0 {
			return
		}
		e.post()
		for _, c := range e.chans {
			if c.pending {
				c.Buffer.WriteColors(c.frame)
			}
		}
	})
	if rendered == 0 {
		return e.opts.IdleDelay
	}
	frameRenderSeconds.Observe(time.Since(renderStart).Seconds())

	var first time.Time
	var latch time.Duration
	for _, c := range e.chans {
		if !c.pending {
			continue
		}
		t0 := time.Now()
		err := c.Driver.Transmit(c.Buffer.Symbols())
		stripTransmitSeconds.WithLabelValues(c.name).Observe(time.Since(t0).Seconds())
		if err != nil {
			e.degrade(c, err)
			continue
		}
		if first.IsZero() {
			first = e.now()
		}
		latch = max(latch, c.Buffer.Protocol().Latch)
	}

	e.frameID++
	if e.opts.Observer != nil {
		e.notify(now, effectName)
	}
	if first.IsZero() {
		return e.opts.IdleDelay
	}
	framesRendered.Inc()
	return max(0, latch-e.now().Sub(first))
}

func (e *Engine) post() {
	b := e.opts.Brightness
	if !e.opts.Limiter.Enabled() && (b == 0 || b == 1) {
		return
	}
	frames := make([][]color.Rgb8, 0, len(e.chans))
	for _, c := range e.chans {
		if !c.pending {
			continue
		}
		if b != 0 && b != 1 {
			for i := range c.frame {
				c.frame[i] = c.frame[i].Brightness(b)
			}
		}
		frames = append(frames, c.frame)
	}
	e.opts.Limiter.Apply(frames)
}

func (e *Engine) degrade(c *Channel, err error) {
	stripTransmitErrors.WithLabelValues(c.name).Inc()
	c.pending = false
	c.degraded.Store(true)
	c.since = e.now()
	stripDegradedGauge.WithLabelValues(c.name).Set(1)
	log.Error().Err(err).Str("strip", c.name).Int("index", c.Strip).Msg("strip transmit failed, marking degraded")
	e.opts.Diagnostics.Push(diagnostics.Diagnostic{
		Time:     c.since,
		Severity: diagnostics.Err,
		Code:     diagnostics.StripDegraded,
		Summary:  "Strip output failed and is skipped",
		Detail:   err.Error(),
		LikelyCauses: []string{
			"SPI device busy or removed",
			"driver closed",
		},
		Evidence: map[string]any{"strip": c.name, "index": c.Strip},
	})
}

// retry clears a degraded channel once DegradedRetry has elapsed.
func (e *Engine) retry(c *Channel, now time.Time) bool {
	if e.opts.DegradedRetry <= 0 || now.Sub(c.since) < e.opts.DegradedRetry {
		return false
	}
	c.degraded.Store(false)
	stripDegradedGauge.WithLabelValues(c.name).Set(0)
	log.Info().Str("strip", c.name).Msg("retrying degraded strip")
	e.opts.Diagnostics.Push(diagnostics.Diagnostic{
		Time:     now,
		Severity: diagnostics.Info,
		Code:     diagnostics.StripRecovered,
		Summary:  "Retrying strip output",
		Evidence: map[string]any{"strip": c.name, "index": c.Strip},
	})
	return true
}

func (e *Engine) notify(now time.Time, effectName string) {
	f := Frame{ID: e.frameID, Time: now, Effect: effectName}
	for _, c := range e.chans {
		sf := StripFrame{Index: c.Strip, Name: c.name, Mode: c.mode}
		if c.pending {
			sf.Colors = append([]color.Rgb8(nil), c.frame...)
		}
		f.Strips = append(f.Strips, sf)
	}
	e.opts.Observer.OnFrame(f)
}

// Channels exposes the configured channels, for health reporting.
func (e *Engine) Channels() []*Channel { return e.chans }
