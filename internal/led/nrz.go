package led

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/nrzled"
)

// NRZFreq is the SPI clock nrzled expects for 800 kHz class strips.
const NRZFreq = 2500 * physic.KiloHertz

// NRZ hands frames to periph's nrzled driver. The symbol stream is decoded
// back to pixels first; nrzled applies its own GRB wire order and timing.
type NRZ struct {
	mu    sync.Mutex
	port  spi.Port
	dev   *nrzled.Dev
	proto *Protocol
	leds  int
	rgb   []byte
}

func NewNRZ(port spi.Port, p *Protocol, leds int, freq physic.Frequency) (*NRZ, error) {
	if freq == 0 {
		freq = NRZFreq
	}
	dev, err := nrzled.NewSPI(port, &nrzled.Opts{NumPixels: leds, Channels: 3, Freq: freq})
	if err != nil {
		return nil, errors.Wrap(err, "nrzled")
	}
	return &NRZ{port: port, dev: dev, proto: p, leds: leds, rgb: make([]byte, leds*3)}, nil
}

// Transmit implements Driver.
func (d *NRZ) Transmit(syms []Symbol) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dev == nil {
		return errors.New("nrzled closed")
	}
	for i := range d.rgb {
		d.rgb[i] = 0
	}
	for i, c := range DecodeColors(d.proto, syms) {
		if i >= d.leds {
			break
		}
		d.rgb[i*3], d.rgb[i*3+1], d.rgb[i*3+2] = c.R, c.G, c.B
	}
	if _, err := d.dev.Write(d.rgb); err != nil {
		return errors.Wrap(err, "nrzled write")
	}
	return nil
}

func (d *NRZ) String() string { return d.dev.String() }

// Close implements Driver.
func (d *NRZ) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return nil
	}
	err := d.dev.Halt()
	d.dev = nil
	if c, ok := d.port.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
