// Package control implements the strip control channel: mode changes and
// effect selection, framed on a TCP stream.
//
// Each request is a kind byte followed by the message body. Every request
// is answered with an Ack.
package control

import (
	"io"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// Kind identifies a control message on the wire.
type Kind uint8

const (
	KindSetStripMode    Kind = 0x01
	KindShiftEffectMode Kind = 0x02
	KindSetEffect       Kind = 0x03
)

// Status is the result code carried in an Ack.
type Status uint8

const (
	StatusOK          Status = 0
	StatusBadStrip    Status = 1
	StatusBadMode     Status = 2
	StatusUnknownKind Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusBadStrip:
		return "bad strip"
	case StatusBadMode:
		return "bad mode"
	case StatusUnknownKind:
		return "unknown kind"
	default:
		return "unknown status"
	}
}

// ErrUnknownKind is returned by ReadMessage for an unrecognized kind byte.
var ErrUnknownKind = errors.New("unknown control message kind")

// Message is a control request.
type Message interface {
	// Kind is the message's wire kind.
	Kind() Kind

	// WriteContentTo writes the body, without the kind byte.
	WriteContentTo(w io.Writer) error

	// LoadContentFrom reads the body, without the kind byte.
	LoadContentFrom(r io.Reader) error
}

// SetStripMode replaces one strip's mode.
type SetStripMode struct {
	Strip uint8
	Mode  uint8
}

// Kind implements Message.
func (*SetStripMode) Kind() Kind { return KindSetStripMode }

// WriteContentTo implements Message.
func (m *SetStripMode) WriteContentTo(w io.Writer) error { return struc.Pack(w, m) }

// LoadContentFrom implements Message.
func (m *SetStripMode) LoadContentFrom(r io.Reader) error { return struc.Unpack(r, m) }

// ShiftEffectMode moves the effect selection by Delta with wraparound.
type ShiftEffectMode struct {
	Delta int8
}

// Kind implements Message.
func (*ShiftEffectMode) Kind() Kind { return KindShiftEffectMode }

// WriteContentTo implements Message.
func (m *ShiftEffectMode) WriteContentTo(w io.Writer) error { return struc.Pack(w, m) }

// LoadContentFrom implements Message.
func (m *ShiftEffectMode) LoadContentFrom(r io.Reader) error { return struc.Unpack(r, m) }

// SetEffect selects an effect by index, modulo the effect count.
type SetEffect struct {
	Index uint8
}

// Kind implements Message.
func (*SetEffect) Kind() Kind { return KindSetEffect }

// WriteContentTo implements Message.
func (m *SetEffect) WriteContentTo(w io.Writer) error { return struc.Pack(w, m) }

// LoadContentFrom implements Message.
func (m *SetEffect) LoadContentFrom(r io.Reader) error { return struc.Unpack(r, m) }

// Ack answers every request. Effect is the selected effect index after the
// request was handled.
type Ack struct {
	Status uint8
	Effect uint8
}

func newMessage(k Kind) (Message, error) {
	switch k {
	case KindSetStripMode:
		return &SetStripMode{}, nil
	case KindShiftEffectMode:
		return &ShiftEffectMode{}, nil
	case KindSetEffect:
		return &SetEffect{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "kind 0x%02x", uint8(k))
	}
}

// WriteMessage writes m's kind byte and body to w.
func WriteMessage(w io.Writer, m Message) error {
	if _, err := w.Write([]byte{byte(m.Kind())}); err != nil {
		return errors.Wrap(err, "write kind")
	}
	return errors.Wrapf(m.WriteContentTo(w), "write %T", m)
}

// ReadMessage reads one framed message from r.
func ReadMessage(r io.Reader) (Message, error) {
	var kind [1]byte
	if _, err := io.ReadFull(r, kind[:]); err != nil {
		return nil, err
	}
	m, err := newMessage(Kind(kind[0]))
	if err != nil {
		return nil, err
	}
	if err := m.LoadContentFrom(r); err != nil {
		return nil, errors.Wrapf(err, "read %T", m)
	}
	return m, nil
}

// WriteAck writes a.
func WriteAck(w io.Writer, a *Ack) error { return struc.Pack(w, a) }

// ReadAck reads one Ack from r.
func ReadAck(r io.Reader) (*Ack, error) {
	var a Ack
	if err := struc.Unpack(r, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
