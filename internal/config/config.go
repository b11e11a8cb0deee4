// Package config loads the stripcast YAML configuration.
package config

import (
	"os"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/stripcast/internal/led"
	"github.com/coreman2200/stripcast/internal/strip"
)

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Network NetworkConfig `yaml:"network"`
	Render  RenderConfig  `yaml:"render"`
	Effects EffectsConfig `yaml:"effects"`
	Strips  []StripConfig `yaml:"strips"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

type NetworkConfig struct {
	PixelAddr   string `yaml:"pixel_addr"`
	ControlAddr string `yaml:"control_addr"`
	HTTPAddr    string `yaml:"http_addr"` // "-" disables the preview server
	MaxDatagram int    `yaml:"max_datagram"`
}

type LimiterConfig struct {
	WhiteCap         float64 `yaml:"white_cap"`
	ChannelMilliamps float64 `yaml:"channel_ma"`
	BudgetMilliamps  float64 `yaml:"budget_ma"`
	Knee             float64 `yaml:"knee"`
}

// RenderConfig tunes the transmit loop. Durations are seeded before the file
// is decoded, so an explicit degraded_retry of 0s (never retry) is kept.
type RenderConfig struct {
	IdleDelay       Duration      `yaml:"idle_delay"`
	DegradedRetry   Duration      `yaml:"degraded_retry"`
	Brightness      float64       `yaml:"brightness"`
	PinCore         bool          `yaml:"pin_core"`
	Core            int           `yaml:"core"`
	PreviewThrottle Duration      `yaml:"preview_throttle"`
	Limiter         LimiterConfig `yaml:"limiter"`
}

// EffectConfig describes one selectable effect. Which fields apply depends
// on Kind.
type EffectConfig struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind"`
	Palette  []string `yaml:"palette,omitempty"`
	Color    string   `yaml:"color,omitempty"`
	From     string   `yaml:"from,omitempty"`
	To       string   `yaml:"to,omitempty"`
	Speed    float64  `yaml:"speed,omitempty"`
	PulseHz  float64  `yaml:"pulse_hz,omitempty"`
	PeriodMs int      `yaml:"period_ms,omitempty"`
}

type EffectsConfig struct {
	Cycle Duration       `yaml:"cycle"` // 0 disables auto-advance
	Start string         `yaml:"start,omitempty"`
	List  []EffectConfig `yaml:"list"`
}

type DriverConfig struct {
	Kind          string `yaml:"kind"` // sim | console | spi | nrzled
	Dev           string `yaml:"dev,omitempty"`
	SpeedHz       int64  `yaml:"speed_hz,omitempty"`
	EmulateTiming bool   `yaml:"emulate_timing,omitempty"`
}

type StripConfig struct {
	Name     string       `yaml:"name"`
	LEDs     int          `yaml:"leds"`
	Reversed bool         `yaml:"reversed"`
	Mode     string       `yaml:"mode"`
	Protocol string       `yaml:"protocol"`
	Order    string       `yaml:"order,omitempty"`
	Driver   DriverConfig `yaml:"driver"`
}

// Effect kinds understood by the app.
var EffectKinds = []string{"wheel", "pattern", "bounce", "solid", "gradient", "channel_test"}

// Driver kinds understood by the app.
var DriverKinds = []string{"sim", "console", "spi", "nrzled"}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is given: two
// 300-pixel WS2812B strips on simulated outputs, the second reversed.
func Default() *Config {
	cfg := &Config{
		Render: defaultRender(),
		Strips: []StripConfig{
			{Name: "strip0", LEDs: strip.MaxLEDs, Mode: "hybrid", Driver: DriverConfig{Kind: "sim"}},
			{Name: "strip1", LEDs: strip.MaxLEDs, Reversed: true, Mode: "hybrid", Driver: DriverConfig{Kind: "sim"}},
		},
	}
	cfg.setDefaults()
	return cfg
}

// Load reads and parses the configuration file, fills defaults and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return Parse(data)
}

// Parse is Load without the file.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Config{Render: defaultRender()}
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultRender() RenderConfig {
	return RenderConfig{
		IdleDelay:       Duration(time.Second),
		DegradedRetry:   Duration(5 * time.Second),
		Brightness:      1,
		PreviewThrottle: Duration(50 * time.Millisecond),
	}
}

func (cfg *Config) setDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	if cfg.Network.PixelAddr == "" {
		cfg.Network.PixelAddr = ":1337"
	}
	if cfg.Network.ControlAddr == "" {
		cfg.Network.ControlAddr = ":1338"
	}
	if cfg.Network.HTTPAddr == "" {
		cfg.Network.HTTPAddr = ":8080"
	}
	if cfg.Network.MaxDatagram == 0 {
		cfg.Network.MaxDatagram = 8092
	}

	if cfg.Render.Brightness == 0 {
		cfg.Render.Brightness = 1
	}

	if len(cfg.Effects.List) == 0 {
		cfg.Effects.List = []EffectConfig{
			{Name: "wheel", Kind: "wheel"},
			{Name: "pattern", Kind: "pattern", Palette: []string{"#ff0000", "#000000"}, Speed: 1},
			{Name: "bounce", Kind: "bounce", Color: "#ffffff", Speed: 0.25},
		}
	}

	for i := range cfg.Strips {
		s := &cfg.Strips[i]
		if s.Mode == "" {
			s.Mode = "hybrid"
		}
		if s.Protocol == "" {
			s.Protocol = "ws2812b"
		}
		if s.Driver.Kind == "" {
			s.Driver.Kind = "sim"
		}
		if s.Driver.Kind == "spi" || s.Driver.Kind == "nrzled" {
			if s.Driver.Dev == "" {
				s.Driver.Dev = "/dev/spidev0.0"
			}
		}
	}
}

// Validate reports the first configuration error.
func (cfg *Config) Validate() error {
	if cfg.Network.MaxDatagram < 0 {
		return errors.Errorf("network.max_datagram: %d is negative", cfg.Network.MaxDatagram)
	}
	if cfg.Render.IdleDelay <= 0 {
		return errors.Errorf("render.idle_delay: %s must be positive", cfg.Render.IdleDelay.Duration())
	}
	if cfg.Render.DegradedRetry < 0 {
		return errors.Errorf("render.degraded_retry: %s is negative", cfg.Render.DegradedRetry.Duration())
	}
	if cfg.Render.PreviewThrottle < 0 {
		return errors.Errorf("render.preview_throttle: %s is negative", cfg.Render.PreviewThrottle.Duration())
	}
	if b := cfg.Render.Brightness; b < 0 || b > 1 {
		return errors.Errorf("render.brightness: %g outside [0,1]", b)
	}
	if cfg.Render.PinCore && cfg.Render.Core < 0 {
		return errors.Errorf("render.core: %d is negative", cfg.Render.Core)
	}

	names := map[string]bool{}
	for i, e := range cfg.Effects.List {
		if e.Name == "" {
			return errors.Errorf("effects.list[%d]: missing name", i)
		}
		if names[e.Name] {
			return errors.Errorf("effects.list[%d]: duplicate name %q", i, e.Name)
		}
		names[e.Name] = true
		if !contains(EffectKinds, e.Kind) {
			return errors.Errorf("effects.list[%d]: unknown kind %q", i, e.Kind)
		}
	}
	if cfg.Effects.Start != "" && !names[cfg.Effects.Start] {
		return errors.Errorf("effects.start: no effect named %q", cfg.Effects.Start)
	}

	if len(cfg.Strips) == 0 {
		return errors.New("strips: at least one strip is required")
	}
	if len(cfg.Strips) > 256 {
		return errors.Errorf("strips: %d strips, datagrams address at most 256", len(cfg.Strips))
	}
	for i, s := range cfg.Strips {
		if s.LEDs < 0 || s.LEDs > strip.MaxLEDs {
			return errors.Errorf("strips[%d]: leds %d outside [0,%d]", i, s.LEDs, strip.MaxLEDs)
		}
		if _, err := strip.ParseMode(s.Mode); err != nil {
			return errors.Wrapf(err, "strips[%d]", i)
		}
		if _, err := led.LookupProtocol(s.Protocol, s.Order); err != nil {
			return errors.Wrapf(err, "strips[%d]", i)
		}
		if !contains(DriverKinds, s.Driver.Kind) {
			return errors.Errorf("strips[%d]: unknown driver kind %q", i, s.Driver.Kind)
		}
		if s.Driver.SpeedHz < 0 {
			return errors.Errorf("strips[%d]: driver.speed_hz %d is negative", i, s.Driver.SpeedHz)
		}
	}
	return nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return errors.Wrap(os.WriteFile(path, b, 0644), "write config")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var envVar = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envVar.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVar.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})
}
