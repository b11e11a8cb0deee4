package control

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultAddr is the TCP address the control server listens on.
const DefaultAddr = ":1338"

// Server accepts control connections and answers each request with an Ack.
// A malformed stream closes only its own connection.
type Server struct {
	handler *Handler

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

func NewServer(h *Handler) *Server {
	return &Server{handler: h, conns: make(map[net.Conn]struct{})}
}

// ListenAndServe binds addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then closes ln and
// every open connection and waits for their goroutines.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log.Info().Str("addr", ln.Addr().String()).Msg("control server listening")

	closeAll := func() {
		_ = ln.Close()
		s.mu.Lock()
		for c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()
	}
	stop := context.AfterFunc(ctx, closeAll)
	defer func() {
		stop()
		closeAll()
		s.wg.Wait()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "accept control connection")
		}
		connectionsAccepted.Inc()

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(conn)

			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
		}()
	}
}

// ServeConn handles requests on conn until it fails or closes. conn is
// closed on return.
func (s *Server) ServeConn(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	log.Debug().Str("remote", remote).Msg("control connection opened")

	for {
		m, err := ReadMessage(conn)
		switch {
		case err == nil:
		case errors.Cause(err) == ErrUnknownKind:
			// The body length is unknown, so the stream cannot be resynced.
			requestsHandled.WithLabelValues("unknown", StatusUnknownKind.String()).Inc()
			log.Warn().Err(err).Str("remote", remote).Msg("closing control connection")
			_ = WriteAck(conn, &Ack{Status: uint8(StatusUnknownKind)})
			return
		case errors.Cause(err) == io.EOF:
			log.Debug().Str("remote", remote).Msg("control connection closed")
			return
		default:
			log.Warn().Err(err).Str("remote", remote).Msg("closing malformed control connection")
			return
		}

		ack := s.handler.Handle(m)
		if err := WriteAck(conn, &ack); err != nil {
			log.Warn().Err(err).Str("remote", remote).Msg("control reply failed")
			return
		}
	}
}
