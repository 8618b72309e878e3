// Package network implements the frame transport between the client and a
// game server: the TCP socket, the read goroutine that hands every frame to
// the dispatcher, and the locked write path shared by all senders.
package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cfclient-project/cfclient/internal/events"
	"github.com/cfclient-project/cfclient/internal/protocol"
)

// ErrNotConnected is returned by Send when no connection is open.
var ErrNotConnected = errors.New("not connected")

// ErrAlreadyConnected is returned by Connect while a connection is open.
var ErrAlreadyConnected = errors.New("already connected")

// FrameHandler receives every non-empty inbound payload on the read
// goroutine. A returned error ends the connection with the error text as
// the disconnect reason; handlers return only errors that must do so.
type FrameHandler func(payload []byte) error

// LifecycleListener is notified of socket lifecycle changes.
type LifecycleListener func(phase events.TransportPhase, addr, reason string)

// PacketSentObserver sees every payload after it was written. The slice is
// only valid during the call.
type PacketSentObserver func(payload []byte)

// Stats holds transport counters.
type Stats struct {
	Connected   bool      `json:"connected"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
	LastRead    time.Time `json:"last_read"`
	LastWrite   time.Time `json:"last_write"`
	FramesIn    uint64    `json:"frames_in"`
	FramesOut   uint64    `json:"frames_out"`
	BytesIn     uint64    `json:"bytes_in"`
	BytesOut    uint64    `json:"bytes_out"`
}

// session is one open socket. Each Connect creates a new session so that a
// late close from an old read goroutine cannot affect a newer connection.
type session struct {
	conn      net.Conn
	addr      string
	closeOnce sync.Once
	stopped   chan struct{}
}

// Transport owns the socket of one server connection.
type Transport struct {
	mu      sync.Mutex
	writeMu sync.Mutex
	sess    *session

	handler   FrameHandler
	lifecycle []LifecycleListener
	sent      []PacketSentObserver

	dialTimeout  time.Duration
	writeTimeout time.Duration
	logger       zerolog.Logger

	connectedAt time.Time
	lastRead    atomic.Int64
	lastWrite   atomic.Int64
	framesIn    atomic.Uint64
	framesOut   atomic.Uint64
	bytesIn     atomic.Uint64
	bytesOut    atomic.Uint64
}

// NewTransport creates a transport that delivers inbound frames to handler.
func NewTransport(handler FrameHandler, dialTimeout, writeTimeout time.Duration) *Transport {
	return &Transport{
		handler:      handler,
		dialTimeout:  dialTimeout,
		writeTimeout: writeTimeout,
		logger:       log.With().Str("component", "transport").Logger(),
	}
}

// OnLifecycle registers a lifecycle listener. Listeners run synchronously in
// registration order.
func (t *Transport) OnLifecycle(l LifecycleListener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lifecycle = append(t.lifecycle, l)
}

// OnPacketSent registers an observer of outbound payloads.
func (t *Transport) OnPacketSent(o PacketSentObserver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, o)
}

func (t *Transport) notify(phase events.TransportPhase, addr, reason string) {
	t.mu.Lock()
	listeners := append([]LifecycleListener(nil), t.lifecycle...)
	t.mu.Unlock()

	for _, l := range listeners {
		l(phase, addr, reason)
	}
}

// Connect dials host:port and starts the read goroutine. Listeners see
// connecting followed by connected, or connect_failed.
func (t *Transport) Connect(ctx context.Context, host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	t.mu.Lock()
	busy := t.sess != nil
	t.mu.Unlock()
	if busy {
		return ErrAlreadyConnected
	}

	t.notify(events.TransportConnecting, addr, "")
	t.logger.Info().Str("addr", addr).Msg("connecting to server")

	dialer := net.Dialer{Timeout: t.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		t.logger.Warn().Err(err).Str("addr", addr).Msg("connect failed")
		t.notify(events.TransportConnectFailed, addr, err.Error())
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	return t.Attach(conn)
}

// Attach adopts an established connection, notifies connected listeners and
// starts the read goroutine.
func (t *Transport) Attach(conn net.Conn) error {
	s := &session{
		conn:    conn,
		addr:    conn.RemoteAddr().String(),
		stopped: make(chan struct{}),
	}

	t.mu.Lock()
	if t.sess != nil {
		t.mu.Unlock()
		conn.Close()
		return ErrAlreadyConnected
	}
	t.sess = s
	t.connectedAt = time.Now()
	t.mu.Unlock()

	t.lastRead.Store(time.Now().UnixNano())
	t.logger.Info().Str("addr", s.addr).Msg("connected to server")

	// Listeners run before the first frame is read so that handshake state
	// is initialised when the server's first reply arrives.
	t.notify(events.TransportConnected, s.addr, "")

	go t.readLoop(s)
	return nil
}

// readLoop reads frames until the socket fails. There is no read deadline:
// a silent server blocks this goroutine until Disconnect closes the socket.
func (t *Transport) readLoop(s *session) {
	defer close(s.stopped)

	for {
		payload, err := protocol.ReadPacket(s.conn)
		if err != nil {
			reason := err.Error()
			if errors.Is(err, io.EOF) {
				reason = "server closed connection"
			}
			t.closeSession(s, reason)
			return
		}

		t.lastRead.Store(time.Now().UnixNano())
		t.framesIn.Add(1)
		t.bytesIn.Add(uint64(len(payload) + protocol.LengthPrefixSize))

		if len(payload) == 0 {
			continue
		}

		if err := t.handler(payload); err != nil {
			t.logger.Error().Err(err).Msg("closing connection")
			t.closeSession(s, err.Error())
			return
		}
	}
}

// Send writes payload as one frame. Concurrent calls never interleave bytes
// of different frames.
func (t *Transport) Send(payload []byte) error {
	t.mu.Lock()
	s := t.sess
	observers := t.sent
	t.mu.Unlock()

	if s == nil {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	if err := protocol.WritePacket(s.conn, payload); err != nil {
		if errors.Is(err, protocol.ErrFrameTooLarge) {
			return err
		}
		t.closeSession(s, err.Error())
		return fmt.Errorf("failed to send packet: %w", err)
	}

	t.lastWrite.Store(time.Now().UnixNano())
	t.framesOut.Add(1)
	t.bytesOut.Add(uint64(len(payload) + protocol.LengthPrefixSize))

	for _, o := range observers {
		o(payload)
	}
	return nil
}

// Disconnect closes the current connection. Calling it again, or while no
// connection is open, does nothing.
func (t *Transport) Disconnect(reason string) {
	t.mu.Lock()
	s := t.sess
	t.mu.Unlock()

	if s != nil {
		t.closeSession(s, reason)
	}
}

func (t *Transport) closeSession(s *session, reason string) {
	s.closeOnce.Do(func() {
		t.notify(events.TransportDisconnecting, s.addr, reason)

		if err := s.conn.Close(); err != nil {
			t.logger.Debug().Err(err).Msg("close returned error")
		}

		t.mu.Lock()
		if t.sess == s {
			t.sess = nil
		}
		t.mu.Unlock()

		t.logger.Info().Str("addr", s.addr).Str("reason", reason).Msg("disconnected")
		t.notify(events.TransportDisconnected, s.addr, reason)
	})
}

// Stopped returns a channel closed when the current read goroutine has
// exited, or nil when no connection is open.
func (t *Transport) Stopped() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess == nil {
		return nil
	}
	return t.sess.stopped
}

// IsConnected reports whether a connection is open.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sess != nil
}

// LastActivity returns the time of the last inbound frame.
func (t *Transport) LastActivity() time.Time {
	return time.Unix(0, t.lastRead.Load())
}

// Stats returns a snapshot of the transport counters.
func (t *Transport) Stats() Stats {
	t.mu.Lock()
	st := Stats{Connected: t.sess != nil, ConnectedAt: t.connectedAt}
	if t.sess != nil {
		st.RemoteAddr = t.sess.addr
	}
	t.mu.Unlock()

	if v := t.lastRead.Load(); v > 0 {
		st.LastRead = time.Unix(0, v)
	}
	if v := t.lastWrite.Load(); v > 0 {
		st.LastWrite = time.Unix(0, v)
	}
	st.FramesIn = t.framesIn.Load()
	st.FramesOut = t.framesOut.Load()
	st.BytesIn = t.bytesIn.Load()
	st.BytesOut = t.bytesOut.Load()
	return st
}
