// Package diagnostics describes operator-facing notices pushed to preview
// clients when something about the strips needs attention.
package diagnostics

import "time"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes emitted by stripcast.
const (
	StripDegraded  = "STRIP.DEGRADED"
	StripRecovered = "STRIP.RECOVERED"
	EffectChanged  = "EFFECT.CHANGED"
	ModeChanged    = "STRIP.MODE"
)

type Diagnostic struct {
	Time           time.Time      `json:"time"`
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Sink receives diagnostics. Implementations must not block.
type Sink interface {
	Push(d Diagnostic)
}

// Discard drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Push(Diagnostic) {}
