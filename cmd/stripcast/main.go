// Command stripcast drives addressable LED strips from UDP pixel datagrams
// and built-in effects.
package main

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/coreman2200/stripcast/internal/app"
	"github.com/coreman2200/stripcast/internal/config"
	"github.com/coreman2200/stripcast/internal/strip"
)

// modeFlag is a pflag.Value that forces every strip into one mode.
type modeFlag struct {
	mode strip.Mode
	set  bool
}

var _ pflag.Value = (*modeFlag)(nil)

func (f *modeFlag) String() string {
	if !f.set {
		return ""
	}
	return f.mode.String()
}

// Set implements pflag.Value.
func (f *modeFlag) Set(v string) error {
	m, err := strip.ParseMode(v)
	if err != nil {
		return err
	}
	f.mode, f.set = m, true
	return nil
}

// Type implements pflag.Value.
func (f *modeFlag) Type() string { return "mode" }

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "path to config.yaml (built-in defaults when empty)")
		logLevel   = pflag.String("log-level", "", "override log.level: debug | info | warn | error")
		sim        = pflag.Bool("sim", false, "replace every hardware output with the simulator")
		console    = pflag.Bool("console", false, "draw simulated outputs on the terminal")
		httpAddr   = pflag.String("http", "", `override network.http_addr ("-" disables)`)
		mode       modeFlag
	)
	pflag.Var(&mode, "mode", "force every strip into off | effects | dynamic | hybrid")
	pflag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("Failed to load configuration")
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *httpAddr != "" {
		cfg.Network.HTTPAddr = *httpAddr
	}
	for i := range cfg.Strips {
		d := &cfg.Strips[i].Driver
		if *sim {
			d.Kind = "sim"
		}
		if *console && d.Kind == "sim" {
			d.Kind = "console"
		}
		if mode.set {
			cfg.Strips[i].Mode = mode.mode.String()
		}
	}

	setupLogging(cfg.Log.Level, cfg.Log.Format == "json")
	log.Info().Str("config", *configPath).Msg("Starting stripcast")

	application, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	ctx := app.SignalContext()
	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	application.Wait()

	if err := application.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return cfg, nil
}

func setupLogging(level string, useJSON bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		log.Warn().Str("level", level).Msg("unknown log level; using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
