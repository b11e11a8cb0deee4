package strip

import (
	"sync"

	"github.com/coreman2200/stripcast/internal/effect"
)

// Set is the shared strip collection and effect selector. Every read or
// write goes through With, which holds the one lock for the whole call.
type Set struct {
	mu      sync.Mutex
	strips  []State
	effects *effect.Selector
}

func NewSet(strips []State, effects *effect.Selector) *Set {
	return &Set{strips: strips, effects: effects}
}

// With runs f while holding the lock. f must not retain either argument.
func (s *Set) With(f func(strips []State, effects *effect.Selector)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.strips, s.effects)
}

// Len is fixed at construction and needs no lock.
func (s *Set) Len() int { return len(s.strips) }

// Modes returns a copy of every strip's mode.
func (s *Set) Modes() []Mode {
	out := make([]Mode, len(s.strips))
	s.With(func(strips []State, _ *effect.Selector) {
		for i := range strips {
			out[i] = strips[i].Mode
		}
	})
	return out
}
