package effect

import (
	"github.com/pkg/errors"

	"github.com/coreman2200/stripcast/internal/color"
)

// Entry is a named effect in a Selector.
type Entry struct {
	Name string
	Mode Mode
}

// Selector is an ordered, non-empty list of effects with a current index.
// All index movement wraps modulo the list length. It is not safe for
// concurrent use; strip.Set guards it.
type Selector struct {
	list  []Entry
	index int
}

func NewSelector(entries ...Entry) (*Selector, error) {
	if len(entries) == 0 {
		return nil, errors.New("effect selector needs at least one effect")
	}
	for i, e := range entries {
		if e.Mode == nil {
			return nil, errors.Errorf("effect %d (%q) has no mode", i, e.Name)
		}
	}
	return &Selector{list: entries}, nil
}

func (s *Selector) Len() int   { return len(s.list) }
func (s *Selector) Index() int { return s.index }

// Set selects index i mod Len.
func (s *Selector) Set(i int) {
	s.index = mod(i, len(s.list))
}

func (s *Selector) Next() { s.Shift(1) }
func (s *Selector) Prev() { s.Shift(-1) }

// Shift moves the selection by delta positions with wraparound.
func (s *Selector) Shift(delta int) {
	s.index = mod(s.index+delta, len(s.list))
}

func (s *Selector) Current() Mode { return s.list[s.index].Mode }

func (s *Selector) CurrentName() string { return s.list[s.index].Name }

// Names lists the effect names in selection order.
func (s *Selector) Names() []string {
	out := make([]string, len(s.list))
	for i, e := range s.list {
		out[i] = e.Name
	}
	return out
}

// Update renders the current effect into buf.
func (s *Selector) Update(info StripInfo, buf []color.Rgb8, timeMillis uint64) {
	s.Current().Update(info, buf, timeMillis)
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
