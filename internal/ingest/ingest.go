// Package ingest decodes pixel datagrams into strip color buffers.
//
// A datagram is a run of records, each [command u8][strip u8][payload].
// Payload sizes for the buffer commands depend on the target strip's LED
// count. The first bad record aborts the rest of the datagram; records
// already applied stay applied.
package ingest

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/coreman2200/stripcast/internal/color"
	"github.com/coreman2200/stripcast/internal/strip"
)

// Command is a record's leading byte.
type Command uint8

const (
	SetBufferToMany Command = iota
	SetBufferToSingle
	SetSinglePixel
	SetBufferToManyAlpha
	SetBufferToSingleAlpha
)

func (c Command) String() string {
	switch c {
	case SetBufferToMany:
		return "SetBufferToMany"
	case SetBufferToSingle:
		return "SetBufferToSingle"
	case SetSinglePixel:
		return "SetSinglePixel"
	case SetBufferToManyAlpha:
		return "SetBufferToManyAlpha"
	case SetBufferToSingleAlpha:
		return "SetBufferToSingleAlpha"
	default:
		return "Unknown"
	}
}

const headerSize = 2

var (
	ErrStripRange     = errors.New("strip index out of range")
	ErrModeRejected   = errors.New("strip mode does not accept streamed colors")
	ErrUnknownCommand = errors.New("unknown command")
	ErrShortPayload   = errors.New("payload shorter than required")
	ErrPixelRange     = errors.New("pixel index out of range")
)

// Apply decodes datagram into strips and returns how many records were
// applied. The caller must hold the strip lock for the whole call so a
// render never sees part of a datagram.
//
// The returned error wraps one of the package sentinels and describes the
// record that aborted the datagram.
func Apply(strips []strip.State, datagram []byte) (int, error) {
	applied := 0
	for pos := 0; len(datagram)-pos >= headerSize; applied++ {
		cmd, idx := Command(datagram[pos]), int(datagram[pos+1])
		pos += headerSize

		if idx >= len(strips) {
			return applied, errors.Wrapf(ErrStripRange, "record %d: strip %d of %d", applied, idx, len(strips))
		}
		s := &strips[idx]
		if !s.Mode.AcceptsStream() {
			return applied, errors.Wrapf(ErrModeRejected, "record %d: strip %d is %s", applied, idx, s.Mode)
		}

		n, err := applyRecord(s, cmd, datagram[pos:])
		if err != nil {
			return applied, errors.Wrapf(err, "record %d: %s to strip %d", applied, cmd, idx)
		}
		pos += n
	}
	return applied, nil
}

// applyRecord writes one record's payload into s and returns the bytes consumed.
// Nothing is written unless the whole payload is present.
func applyRecord(s *strip.State, cmd Command, p []byte) (int, error) {
	leds := s.Info.LEDs
	switch cmd {
	case SetBufferToMany:
		need := leds * 3
		if len(p) < need {
			return 0, short(need, len(p))
		}
		for i := 0; i < leds; i++ {
			s.Colors[i] = opaque(p[i*3:])
		}
		return need, nil

	case SetBufferToSingle:
		if len(p) < 3 {
			return 0, short(3, len(p))
		}
		fillColors(s, opaque(p))
		return 3, nil

	case SetSinglePixel:
		if len(p) < 5 {
			return 0, short(5, len(p))
		}
		i := int(binary.LittleEndian.Uint16(p))
		if i >= leds {
			return 0, errors.Wrapf(ErrPixelRange, "pixel %d of %d", i, leds)
		}
		s.Colors[i] = opaque(p[2:])
		return 5, nil

	case SetBufferToManyAlpha:
		need := leds * 4
		if len(p) < need {
			return 0, short(need, len(p))
		}
		for i := 0; i < leds; i++ {
			q := p[i*4:]
			s.Colors[i] = color.FromRgba8(q[0], q[1], q[2], q[3])
		}
		return need, nil

	case SetBufferToSingleAlpha:
		if len(p) < 4 {
			return 0, short(4, len(p))
		}
		fillColors(s, color.FromRgba8(p[0], p[1], p[2], p[3]))
		return 4, nil

	default:
		return 0, errors.Wrapf(ErrUnknownCommand, "code %d", uint8(cmd))
	}
}

func opaque(p []byte) color.RgbaF32 {
	return color.FromRgb8(color.Rgb8{R: p[0], G: p[1], B: p[2]})
}

func fillColors(s *strip.State, c color.RgbaF32) {
	for i := 0; i < s.Info.LEDs; i++ {
		s.Colors[i] = c
	}
}

func short(need, have int) error {
	return errors.Wrapf(ErrShortPayload, "need %d bytes, have %d", need, have)
}
