package app

import (
	"github.com/pkg/errors"

	"github.com/coreman2200/stripcast/internal/color"
	"github.com/coreman2200/stripcast/internal/config"
	"github.com/coreman2200/stripcast/internal/effect"
)

// buildEffects turns the configured effect list into a selector positioned
// on cfg.Start.
func buildEffects(cfg config.EffectsConfig) (*effect.Selector, error) {
	entries := make([]effect.Entry, 0, len(cfg.List))
	start := 0
	for i, ec := range cfg.List {
		m, err := buildEffect(ec)
		if err != nil {
			return nil, errors.Wrapf(err, "effect %q", ec.Name)
		}
		entries = append(entries, effect.Entry{Name: ec.Name, Mode: m})
		if ec.Name == cfg.Start {
			start = i
		}
	}
	sel, err := effect.NewSelector(entries...)
	if err != nil {
		return nil, err
	}
	sel.Set(start)
	return sel, nil
}

func buildEffect(ec config.EffectConfig) (effect.Mode, error) {
	switch ec.Kind {
	case "wheel":
		w := effect.NewColorWheel()
		if ec.Speed != 0 {
			w.DegPerSecond = float32(ec.Speed)
		}
		return w, nil

	case "pattern":
		palette, err := parseColors(ec.Palette)
		if err != nil {
			return nil, err
		}
		return &effect.ColorPattern{Palette: palette, Speed: float32(ec.Speed)}, nil

	case "bounce":
		c, err := parseColor(ec.Color, color.Gray8(255))
		if err != nil {
			return nil, err
		}
		return &effect.Bounce{Color: c, Speed: float32(ec.Speed)}, nil

	case "solid":
		c, err := parseColor(ec.Color, color.Gray8(255))
		if err != nil {
			return nil, err
		}
		return &effect.Solid{Color: c, PulseHz: ec.PulseHz}, nil

	case "gradient":
		from, err := parseColor(ec.From, color.Rgb8{})
		if err != nil {
			return nil, err
		}
		to, err := parseColor(ec.To, color.Gray8(255))
		if err != nil {
			return nil, err
		}
		return &effect.Gradient{From: from, To: to}, nil

	case "channel_test":
		return &effect.ChannelTest{PeriodMillis: uint64(max(0, ec.PeriodMs))}, nil

	default:
		return nil, errors.Errorf("unknown effect kind %q", ec.Kind)
	}
}

func parseColor(s string, fallback color.Rgb8) (color.Rgb8, error) {
	if s == "" {
		return fallback, nil
	}
	return color.ParseHex(s)
}

func parseColors(list []string) ([]color.Rgb8, error) {
	out := make([]color.Rgb8, 0, len(list))
	for _, s := range list {
		c, err := color.ParseHex(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
