// Package ws serves the browser preview: a throttled frame stream, a
// diagnostics stream, JSON control and a health report.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/stripcast/internal/control"
	"github.com/coreman2200/stripcast/internal/diagnostics"
	"github.com/coreman2200/stripcast/internal/effect"
	"github.com/coreman2200/stripcast/internal/render"
	"github.com/coreman2200/stripcast/internal/strip"
)

const (
	DefaultThrottle = 50 * time.Millisecond
	writeTimeout    = 200 * time.Millisecond
	recentDiags     = 32
)

var (
	errStripRange = errors.New("strip index out of range")
	errIndexRange = errors.New("effect index out of range")
)

// Hub fans render output and diagnostics out to websocket clients. It
// implements render.Observer and diagnostics.Sink; both only queue work for
// Run and never take mu, so the render loop never waits on a slow client.
// Writers copy the client set under mu and write outside it.
type Hub struct {
	Throttle time.Duration

	set     *strip.Set
	handler *control.Handler

	mu          sync.RWMutex
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
	recent      []diagnostics.Diagnostic
	chans       []*render.Channel
	startTime   time.Time

	// Render goroutine state.
	frameMu   sync.Mutex
	lastFrame time.Time
	frameID   atomic.Uint64
	viewers   atomic.Int32

	frames chan []byte
	diags  chan diagnostics.Diagnostic

	upgrader websocket.Upgrader
}

func NewHub(set *strip.Set, h *control.Handler) *Hub {
	return &Hub{
		Throttle:    DefaultThrottle,
		set:         set,
		handler:     h,
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
		startTime:   time.Now(),
		frames:      make(chan []byte, 1),
		diags:       make(chan diagnostics.Diagnostic, 64),
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// AttachChannels gives /health access to per-channel degraded state.
func (h *Hub) AttachChannels(chans []*render.Channel) {
	h.mu.Lock()
	h.chans = chans
	h.mu.Unlock()
}

type stripFrame struct {
	Index int        `json:"index"`
	Name  string     `json:"name"`
	Mode  strip.Mode `json:"mode"`
	RGB   []byte     `json:"rgb"`
}

type frameMessage struct {
	T       int64        `json:"t"`
	FrameID uint64       `json:"frame_id"`
	Effect  string       `json:"effect"`
	Strips  []stripFrame `json:"strips"`
}

// OnFrame implements render.Observer. Frames arriving faster than Throttle
// are dropped, as are frames the broadcaster has not caught up with.
func (h *Hub) OnFrame(f render.Frame) {
	h.frameID.Store(f.ID)
	if h.viewers.Load() == 0 {
		return
	}
	h.frameMu.Lock()
	if f.Time.Sub(h.lastFrame) < h.Throttle {
		h.frameMu.Unlock()
		return
	}
	h.lastFrame = f.Time
	h.frameMu.Unlock()

	msg := frameMessage{T: f.Time.UnixNano(), FrameID: f.ID, Effect: f.Effect}
	for _, s := range f.Strips {
		sf := stripFrame{Index: s.Index, Name: s.Name, Mode: s.Mode, RGB: make([]byte, 0, len(s.Colors)*3)}
		for _, c := range s.Colors {
			sf.RGB = append(sf.RGB, c.R, c.G, c.B)
		}
		msg.Strips = append(msg.Strips, sf)
	}
	b, err := json.Marshal(msg)
	if err != nil {
		log.Debug().Err(err).Msg("marshal frame")
		return
	}
	select {
	case h.frames <- b:
	default:
	}
}

// Push implements diagnostics.Sink. Diagnostics are dropped when the queue
// is full.
func (h *Hub) Push(d diagnostics.Diagnostic) {
	if d.Time.IsZero() {
		d.Time = time.Now()
	}
	select {
	case h.diags <- d:
	default:
		log.Debug().Str("code", d.Code).Msg("diagnostic queue full, dropping")
	}
}

// Run broadcasts queued frames and diagnostics until ctx is done, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-h.frames:
			h.broadcastFrame(b)
		case d := <-h.diags:
			h.pushDiag(d)
		}
	}
}

func (h *Hub) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	// Register after the topology write so Run is the only writer from then on.
	h.sendTopology(conn)
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	h.viewers.Add(1)
	go func() {
		h.drain(conn, h.clients)
		h.viewers.Add(-1)
	}()
}

func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.RLock()
	backlog := append([]diagnostics.Diagnostic(nil), h.recent...)
	h.mu.RUnlock()
	for _, d := range backlog {
		b, _ := json.Marshal(d)
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = conn.WriteMessage(websocket.TextMessage, b)
	}
	h.mu.Lock()
	h.diagClients[conn] = true
	h.mu.Unlock()
	go h.drain(conn, h.diagClients)
}

// drain reads until the client goes away, then forgets it.
func (h *Hub) drain(conn *websocket.Conn, set map[*websocket.Conn]bool) {
	defer func() {
		h.mu.Lock()
		delete(set, conn)
		h.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ControlRequest is the JSON form of a control message.
type ControlRequest struct {
	Op    string `json:"op"`
	Strip int    `json:"strip"`
	Mode  string `json:"mode"`
	Delta int    `json:"delta"`
	Index int    `json:"index"`
}

// ControlReply answers a ControlRequest.
type ControlReply struct {
	Status string       `json:"status"`
	Effect int          `json:"effect"`
	Modes  []strip.Mode `json:"modes"`
	Error  string       `json:"error,omitempty"`
}

// Message converts r to its wire message.
func (r ControlRequest) Message() (control.Message, error) {
	switch r.Op {
	case "set_strip_mode":
		m, err := strip.ParseMode(r.Mode)
		if err != nil {
			return nil, err
		}
		if r.Strip < 0 || r.Strip > 255 {
			return nil, errStripRange
		}
		return &control.SetStripMode{Strip: uint8(r.Strip), Mode: uint8(m)}, nil
	case "shift_effect":
		return &control.ShiftEffectMode{Delta: int8(max(-128, min(127, r.Delta)))}, nil
	case "set_effect":
		if r.Index < 0 || r.Index > 255 {
			return nil, errIndexRange
		}
		return &control.SetEffect{Index: uint8(r.Index)}, nil
	default:
		return nil, control.ErrUnknownKind
	}
}

func (h *Hub) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		reply := h.control(data)
		b, _ := json.Marshal(reply)
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

func (h *Hub) control(data []byte) ControlReply {
	var req ControlRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ControlReply{Status: "bad request", Error: err.Error(), Modes: h.set.Modes()}
	}
	m, err := req.Message()
	if err != nil {
		reply := ControlReply{Status: control.StatusBadMode.String(), Error: err.Error(), Modes: h.set.Modes()}
		switch err {
		case control.ErrUnknownKind:
			reply.Status = control.StatusUnknownKind.String()
		case errStripRange:
			reply.Status = control.StatusBadStrip.String()
		case errIndexRange:
			reply.Status = "bad request"
		}
		return reply
	}
	ack := h.handler.Handle(m)
	return ControlReply{Status: control.Status(ack.Status).String(), Effect: int(ack.Effect), Modes: h.set.Modes()}
}

type stripHealth struct {
	Index    int        `json:"index"`
	Name     string     `json:"name"`
	LEDs     int        `json:"leds"`
	Reversed bool       `json:"reversed"`
	Mode     strip.Mode `json:"mode"`
	Degraded bool       `json:"degraded"`
}

type health struct {
	FrameID uint64        `json:"frame_id"`
	Uptime  float64       `json:"uptime_s"`
	Effect  string        `json:"effect"`
	Effects []string      `json:"effects"`
	Strips  []stripHealth `json:"strips"`
}

func (h *Hub) snapshot() health {
	var out health
	h.set.With(func(strips []strip.State, effects *effect.Selector) {
		out.Effect = effects.CurrentName()
		out.Effects = effects.Names()
		for i := range strips {
			s := &strips[i]
			out.Strips = append(out.Strips, stripHealth{
				Index: i, Name: s.Name, LEDs: s.Info.LEDs, Reversed: s.Info.Reversed, Mode: s.Mode,
			})
		}
	})
	out.FrameID = h.frameID.Load()
	h.mu.RLock()
	defer h.mu.RUnlock()
	out.Uptime = time.Since(h.startTime).Seconds()
	for _, c := range h.chans {
		if c.Strip < len(out.Strips) {
			out.Strips[c.Strip].Degraded = c.Degraded()
		}
	}
	return out
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.snapshot())
}

func (h *Hub) sendTopology(conn *websocket.Conn) {
	b, _ := json.Marshal(h.snapshot())
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

// conns copies a client set so writes happen outside mu.
func (h *Hub) conns(set map[*websocket.Conn]bool) []*websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*websocket.Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (h *Hub) broadcastFrame(b []byte) {
	for _, c := range h.conns(h.clients) {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
}

func (h *Hub) pushDiag(d diagnostics.Diagnostic) {
	b, err := json.Marshal(d)
	if err != nil {
		log.Debug().Err(err).Str("code", d.Code).Msg("marshal diagnostic")
		return
	}
	h.mu.Lock()
	h.recent = append(h.recent, d)
	if len(h.recent) > recentDiags {
		h.recent = h.recent[len(h.recent)-recentDiags:]
	}
	h.mu.Unlock()

	for _, c := range h.conns(h.diagClients) {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.Close()
	}
	for c := range h.diagClients {
		c.Close()
	}
}
