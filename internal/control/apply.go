package control

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/stripcast/internal/diagnostics"
	"github.com/coreman2200/stripcast/internal/effect"
	"github.com/coreman2200/stripcast/internal/strip"
)

// Apply performs m against set under its lock and returns the reply.
func Apply(set *strip.Set, m Message) Ack {
	var ack Ack
	set.With(func(strips []strip.State, effects *effect.Selector) {
		ack.Status = uint8(apply(strips, effects, m))
		ack.Effect = uint8(effects.Index())
	})
	return ack
}

func apply(strips []strip.State, effects *effect.Selector, m Message) Status {
	switch m := m.(type) {
	case *SetStripMode:
		if int(m.Strip) >= len(strips) {
			return StatusBadStrip
		}
		mode := strip.Mode(m.Mode)
		if !mode.Valid() {
			return StatusBadMode
		}
		strips[m.Strip].Mode = mode
	case *ShiftEffectMode:
		effects.Shift(int(m.Delta))
	case *SetEffect:
		effects.Set(int(m.Index))
	default:
		return StatusUnknownKind
	}
	return StatusOK
}

// Handler applies messages and reports accepted changes to a diagnostics
// sink. It is shared by the TCP server and the websocket control endpoint.
type Handler struct {
	Set         *strip.Set
	Diagnostics diagnostics.Sink
}

// Handle applies m and returns the reply.
func (h *Handler) Handle(m Message) Ack {
	ack := Apply(h.Set, m)
	requestsHandled.WithLabelValues(kindLabel(m), Status(ack.Status).String()).Inc()
	if Status(ack.Status) != StatusOK {
		log.Debug().Str("kind", kindLabel(m)).Stringer("status", Status(ack.Status)).Msg("control request rejected")
		return ack
	}

	d := diagnostics.Diagnostic{Time: time.Now(), Severity: diagnostics.Info}
	switch m := m.(type) {
	case *SetStripMode:
		mode := strip.Mode(m.Mode)
		log.Info().Int("strip", int(m.Strip)).Stringer("mode", mode).Msg("strip mode changed")
		d.Code = diagnostics.ModeChanged
		d.Summary = "Strip mode changed"
		d.Evidence = map[string]any{"strip": int(m.Strip), "mode": mode.String()}
	default:
		log.Info().Int("effect", int(ack.Effect)).Msg("effect changed")
		d.Code = diagnostics.EffectChanged
		d.Summary = "Effect changed"
		d.Evidence = map[string]any{"effect": int(ack.Effect)}
	}
	if h.Diagnostics != nil {
		h.Diagnostics.Push(d)
	}
	return ack
}

func kindLabel(m Message) string {
	switch m.(type) {
	case *SetStripMode:
		return "set_strip_mode"
	case *ShiftEffectMode:
		return "shift_effect"
	case *SetEffect:
		return "set_effect"
	default:
		return "unknown"
	}
}
