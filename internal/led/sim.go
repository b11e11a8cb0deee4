package led

import (
	"image"
	stdcolor "image/color"
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/display"

	"github.com/coreman2200/stripcast/internal/color"
)

// Sim is a Driver without hardware. It decodes every frame, keeps the last
// one, optionally blocks for the time the frame would occupy the wire and
// optionally draws it on a display.Drawer such as a console strip.
type Sim struct {
	mu      sync.Mutex
	proto   *Protocol
	drawer  display.Drawer
	emulate bool
	frames  uint64
	last    []color.Rgb8
	img     *image.NRGBA
	closed  bool
}

func NewSim(p *Protocol, emulateTiming bool, drawer display.Drawer) *Sim {
	return &Sim{proto: p, emulate: emulateTiming, drawer: drawer}
}

// Transmit implements Driver.
func (s *Sim) Transmit(syms []Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("sim closed")
	}
	if s.emulate {
		time.Sleep(WireTime(s.proto, syms))
	}
	s.last = DecodeColors(s.proto, syms)
	s.frames++

	if s.drawer == nil {
		return nil
	}
	if s.img == nil || s.img.Rect.Dx() != len(s.last) {
		s.img = image.NewNRGBA(image.Rect(0, 0, len(s.last), 1))
	}
	for i, c := range s.last {
		s.img.SetNRGBA(i, 0, stdcolor.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
	}
	if err := s.drawer.Draw(s.drawer.Bounds(), s.img, image.Point{}); err != nil {
		return errors.Wrap(err, "sim draw")
	}
	return nil
}

// Last returns a copy of the most recent frame.
func (s *Sim) Last() []color.Rgb8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]color.Rgb8(nil), s.last...)
}

// Frames is the number of frames transmitted.
func (s *Sim) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Close implements Driver.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.drawer != nil {
		return s.drawer.Halt()
	}
	return nil
}
