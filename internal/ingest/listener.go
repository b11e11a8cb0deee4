package ingest

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/coreman2200/stripcast/internal/effect"
	"github.com/coreman2200/stripcast/internal/strip"
)

const (
	// DefaultAddr is the UDP address pixel datagrams arrive on.
	DefaultAddr = ":1337"
	// DefaultMaxDatagram is the receive buffer size. Longer datagrams are
	// truncated by the socket.
	DefaultMaxDatagram = 8092
)

// Listener applies every datagram read from a UDP socket to a strip.Set.
//
// Each datagram is applied while holding the set's lock, so the render loop
// sees all of its records or none.
type Listener struct {
	set  *strip.Set
	data []byte
	warn *rate.Limiter
}

// NewListener returns a Listener for set. maxDatagram <= 0 uses
// DefaultMaxDatagram.
func NewListener(set *strip.Set, maxDatagram int) *Listener {
	if maxDatagram <= 0 {
		maxDatagram = DefaultMaxDatagram
	}
	return &Listener{
		set:  set,
		data: make([]byte, maxDatagram),
		warn: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
}

// ListenAndServe binds addr and calls Serve.
func (l *Listener) ListenAndServe(ctx context.Context, addr string) error {
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return errors.Wrapf(err, "resolve pixel address %q", addr)
	}
	conn, err := net.ListenUDP("udp", ua)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	return l.Serve(ctx, conn)
}

// Serve reads datagrams from conn until ctx is done. It takes ownership of
// conn and closes it on return. Malformed input never stops the loop.
func (l *Listener) Serve(ctx context.Context, conn *net.UDPConn) error {
	log.Info().Str("addr", conn.LocalAddr().String()).Msg("listening for pixel datagrams")

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		if stop() {
			_ = conn.Close()
		}
	}()

	for {
		n, addr, err := conn.ReadFromUDP(l.data)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return errors.Wrap(err, "read pixel datagram")
		}
		datagramsReceived.Inc()
		datagramBytes.Observe(float64(n))
		l.dispatch(l.data[:n], addr)
	}
}

func (l *Listener) dispatch(datagram []byte, from *net.UDPAddr) {
	defer func() {
		if r := recover(); r != nil {
			datagramsDropped.WithLabelValues("panic").Inc()
			log.Error().Interface("panic", r).Stringer("from", from).Msg("dropping panic while applying datagram")
		}
	}()

	var (
		applied int
		err     error
	)
	l.set.With(func(strips []strip.State, _ *effect.Selector) {
		applied, err = Apply(strips, datagram)
	})
	recordsApplied.Add(float64(applied))
	if err == nil {
		return
	}

	datagramsDropped.WithLabelValues(reason(err)).Inc()
	log.Debug().Err(err).Stringer("from", from).Int("applied", applied).Msg("datagram remainder dropped")
	if l.warn.Allow() {
		log.Warn().Err(err).Stringer("from", from).Msg("dropping malformed pixel datagrams")
	}
}

func reason(err error) string {
	switch errors.Cause(err) {
	case ErrStripRange:
		return "strip_range"
	case ErrModeRejected:
		return "mode"
	case ErrUnknownCommand:
		return "command"
	case ErrShortPayload:
		return "short"
	case ErrPixelRange:
		return "pixel_range"
	default:
		return "other"
	}
}
