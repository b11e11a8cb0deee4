// Package app wires configuration, strips, drivers and network services
// into a running stripcast instance.
package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/stripcast/internal/config"
	"github.com/coreman2200/stripcast/internal/control"
	"github.com/coreman2200/stripcast/internal/diagnostics"
	"github.com/coreman2200/stripcast/internal/effect"
	"github.com/coreman2200/stripcast/internal/ingest"
	"github.com/coreman2200/stripcast/internal/led"
	"github.com/coreman2200/stripcast/internal/render"
	"github.com/coreman2200/stripcast/internal/strip"
	"github.com/coreman2200/stripcast/internal/ws"
)

// App owns every service of a stripcast instance.
type App struct {
	cfg *config.Config

	Set      *strip.Set
	Engine   *render.Engine
	Hub      *ws.Hub
	Listener *ingest.Listener
	Control  *control.Server
	Registry *prometheus.Registry

	channels []*render.Channel
	drivers  []led.Driver
	http     *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds all services without starting any of them.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	a := &App{cfg: cfg}

	effects, err := buildEffects(cfg.Effects)
	if err != nil {
		return nil, err
	}

	strips := make([]strip.State, len(cfg.Strips))
	for i, sc := range cfg.Strips {
		strips[i] = strip.NewState(sc.Name, effect.StripInfo{LEDs: sc.LEDs, Reversed: sc.Reversed})
		if !strips[i].Empty() {
			strips[i].Mode, _ = strip.ParseMode(sc.Mode)
		}
	}
	a.Set = strip.NewSet(strips, effects)

	handler := &control.Handler{Set: a.Set}
	a.Hub = ws.NewHub(a.Set, handler)
	a.Hub.Throttle = cfg.Render.PreviewThrottle.Duration()
	handler.Diagnostics = a.Hub

	for i, sc := range cfg.Strips {
		if sc.LEDs == 0 {
			continue
		}
		proto, err := led.LookupProtocol(sc.Protocol, sc.Order)
		if err != nil {
			a.closeDrivers()
			return nil, errors.Wrapf(err, "strip %q", sc.Name)
		}
		d, kind, err := openDriver(sc, &proto)
		if err != nil {
			a.closeDrivers()
			return nil, errors.Wrapf(err, "strip %q", sc.Name)
		}
		log.Info().Str("strip", sc.Name).Int("leds", sc.LEDs).Str("protocol", proto.Name).
			Stringer("order", proto.Order).Str("driver", kind).Msg("strip output ready")
		a.drivers = append(a.drivers, d)
		a.channels = append(a.channels, render.NewChannel(i, sc.LEDs, &proto, d))
	}

	lim := cfg.Render.Limiter
	a.Engine, err = render.NewEngine(a.Set, a.channels, render.Options{
		IdleDelay:     cfg.Render.IdleDelay.Duration(),
		DegradedRetry: cfg.Render.DegradedRetry.Duration(),
		Brightness:    float32(cfg.Render.Brightness),
		Limiter: render.Limiter{
			WhiteCap:         lim.WhiteCap,
			ChannelMilliamps: lim.ChannelMilliamps,
			BudgetMilliamps:  lim.BudgetMilliamps,
			Knee:             lim.Knee,
		},
		Pin:         cfg.Render.PinCore,
		Core:        cfg.Render.Core,
		Observer:    a.Hub,
		Diagnostics: a.Hub,
	})
	if err != nil {
		a.closeDrivers()
		return nil, err
	}
	a.Hub.AttachChannels(a.Engine.Channels())

	a.Listener = ingest.NewListener(a.Set, cfg.Network.MaxDatagram)
	a.Control = control.NewServer(handler)

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	render.RegisterMonitoring(a.Registry)
	ingest.RegisterMonitoring(a.Registry)
	control.RegisterMonitoring(a.Registry)

	if cfg.Network.HTTPAddr != "-" {
		a.http = &http.Server{
			Addr:         cfg.Network.HTTPAddr,
			Handler:      withCORS(a.Routes()),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
	}
	return a, nil
}

// Start launches every service. A service that fails after starting
// cancels the app, which stops the rest.
func (a *App) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	onFatalError := func(service string, err error) {
		log.Error().Err(err).Str("service", service).Msg("Fatal error, initiating shutdown")
		a.cancel()
	}

	a.goService("render", func(ctx context.Context) error { return a.Engine.Run(ctx) }, onFatalError)
	a.goService("hub", func(ctx context.Context) error { a.Hub.Run(ctx); return nil }, onFatalError)
	a.goService("pixels", func(ctx context.Context) error {
		return a.Listener.ListenAndServe(ctx, a.cfg.Network.PixelAddr)
	}, onFatalError)
	a.goService("control", func(ctx context.Context) error {
		return a.Control.ListenAndServe(ctx, a.cfg.Network.ControlAddr)
	}, onFatalError)
	if cycle := a.cfg.Effects.Cycle.Duration(); cycle > 0 {
		a.goService("cycle", func(ctx context.Context) error { a.cycleEffects(ctx, cycle); return nil }, onFatalError)
	}
	if a.http != nil {
		a.goService("http", func(ctx context.Context) error {
			log.Info().Str("addr", a.http.Addr).Msg("HTTP server starting")
			if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		}, onFatalError)
	}

	log.Info().Int("strips", a.Set.Len()).Int("outputs", len(a.channels)).Msg("stripcast started")
	return nil
}

func (a *App) goService(name string, run func(ctx context.Context) error, onFatal func(string, error)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := run(a.ctx); err != nil {
			onFatal(name, err)
		}
	}()
}

// cycleEffects advances the effect selection every interval.
func (a *App) cycleEffects(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		var name string
		var index int
		a.Set.With(func(_ []strip.State, effects *effect.Selector) {
			effects.Next()
			name, index = effects.CurrentName(), effects.Index()
		})
		log.Debug().Str("effect", name).Msg("effect cycled")
		a.Hub.Push(diagnostics.Diagnostic{
			Severity: diagnostics.Info,
			Code:     diagnostics.EffectChanged,
			Summary:  "Effect cycled",
			Evidence: map[string]any{"effect": index, "name": name},
		})
	}
}

// Stop shuts every service down and releases the drivers.
func (a *App) Stop() error {
	log.Info().Msg("Shutting down...")

	if a.cancel != nil {
		a.cancel()
	}
	var err error
	if a.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = a.http.Shutdown(ctx)
		cancel()
	}
	a.wg.Wait()
	if cerr := a.closeDrivers(); err == nil {
		err = cerr
	}
	return err
}

// Wait blocks until the application context is cancelled.
func (a *App) Wait() {
	if a.ctx != nil {
		<-a.ctx.Done()
	}
}

func (a *App) closeDrivers() error {
	var first error
	for _, d := range a.drivers {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
	}
	a.drivers = nil
	return first
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
