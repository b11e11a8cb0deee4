package led

import (
	"io"
	"math"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// SPI drives a strip from an SPI MOSI line, three SPI bits per data bit.
// The latch is sent as trailing zero bytes in the same transaction.
type SPI struct {
	mu    sync.Mutex
	port  spi.Port
	conn  spi.Conn
	proto *Protocol
	lut   *spiLUT
	latch int
	max   int
	buf   []byte
}

// DefaultSPIFreq is three SPI bits per protocol bit.
func DefaultSPIFreq(p *Protocol) physic.Frequency {
	return physic.Frequency(math.Round(3*p.BitRate())) * physic.Hertz
}

// NewSPI connects port for p. A zero freq selects DefaultSPIFreq. The driver
// closes port on Close when port is an io.Closer.
func NewSPI(port spi.Port, p *Protocol, freq physic.Frequency) (*SPI, error) {
	if freq == 0 {
		freq = DefaultSPIFreq(p)
	}
	c, err := port.Connect(freq, spi.Mode0, 8)
	if err != nil {
		return nil, errors.Wrapf(err, "spi connect at %s", freq)
	}
	hz := float64(freq) / float64(physic.Hertz)
	s := &SPI{
		port:  port,
		conn:  c,
		proto: p,
		lut:   newSPILUT(),
		latch: int(math.Ceil(p.Latch.Seconds() * hz / 8)),
	}
	if l, ok := c.(conn.Limits); ok {
		s.max = l.MaxTxSize()
	}
	return s, nil
}

// Transmit implements Driver.
func (s *SPI) Transmit(syms []Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return errors.New("spi closed")
	}
	need := expandedLen(len(syms)) + s.latch
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]
	n := s.lut.expand(s.proto, buf, syms)
	for i := n; i < n+s.latch; i++ {
		buf[i] = 0
	}
	buf = buf[:n+s.latch]

	for len(buf) > 0 {
		chunk := buf
		if s.max > 0 && len(chunk) > s.max {
			chunk = chunk[:s.max]
		}
		if err := s.conn.Tx(chunk, nil); err != nil {
			return errors.Wrap(err, "spi write")
		}
		buf = buf[len(chunk):]
	}
	return nil
}

// Close implements Driver.
func (s *SPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = nil
	if c, ok := s.port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
