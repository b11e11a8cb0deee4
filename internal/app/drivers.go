package app

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/coreman2200/stripcast/internal/config"
	"github.com/coreman2200/stripcast/internal/led"
)

var (
	hostOnce sync.Once
	hostErr  error
)

func initHost() error {
	hostOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			hostErr = errors.Wrap(err, "initialize periph host drivers")
		}
	})
	return hostErr
}

// openDriver opens the output for one strip. Hardware that cannot be
// opened falls back to the console simulator so the rest of the strips and
// the network side keep working.
func openDriver(sc config.StripConfig, p *led.Protocol) (led.Driver, string, error) {
	switch sc.Driver.Kind {
	case "sim":
		return led.NewSim(p, sc.Driver.EmulateTiming, nil), "sim", nil
	case "console":
		return led.NewSim(p, sc.Driver.EmulateTiming, screen.New(max(1, sc.LEDs))), "console", nil
	case "spi", "nrzled":
	default:
		return nil, "", errors.Errorf("unknown driver kind %q", sc.Driver.Kind)
	}

	d, err := openSPI(sc, p)
	if err != nil {
		log.Warn().Err(err).
			Str("strip", sc.Name).
			Str("driver", sc.Driver.Kind).
			Str("dev", sc.Driver.Dev).
			Msg("SPI init failed; falling back to console")
		return led.NewSim(p, true, screen.New(max(1, sc.LEDs))), "console", nil
	}
	return d, sc.Driver.Kind, nil
}

func openSPI(sc config.StripConfig, p *led.Protocol) (led.Driver, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	port, err := spireg.Open(sc.Driver.Dev)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", sc.Driver.Dev)
	}

	// zero selects the driver's default clock
	freq := physic.Frequency(sc.Driver.SpeedHz) * physic.Hertz
	var d led.Driver
	if sc.Driver.Kind == "nrzled" {
		d, err = led.NewNRZ(port, p, sc.LEDs, freq)
	} else {
		d, err = led.NewSPI(port, p, freq)
	}
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return d, nil
}
