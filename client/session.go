// File: client/session.go
// Package client provides the WebSocket session for realtime-ws: one owned
// transport, the upgrade handshake, and a cooperative frame pump.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A WSSession is driven by repeated Pump calls on a single thread of
// control. It performs:
// - RFC 6455 handshake over the abstract byte-stream transport
// - Masking and framing per RFC 6455 for all outbound traffic
// - Ping auto-reply and Close tracking without surfacing control frames
// - Full-write loops over transports that accept partial writes
//
// There is no internal reconnect: transport failures surface once and
// reconnection policy belongs to the caller.

package client

import (
	"fmt"
	"io"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/realtime-ws/api"
	"github.com/momentics/realtime-ws/control"
	"github.com/momentics/realtime-ws/protocol"
)

// State models the session lifecycle.
type State int32

const (
	StateClosed State = iota
	StateHandshaking
	StateOpen
	StateClosing
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHandshaking:
		return "handshaking"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

// Message is one complete application message surfaced by the pump.
type Message struct {
	Opcode  byte
	Payload []byte
}

// Config holds the connection parameters for one session.
type Config struct {
	Host             string
	Port             int
	Path             string
	Headers          map[string]string // bearer auth, beta flags
	HandshakeTimeout time.Duration     // default 10s
	ReadChunk        int               // transport read size, default 2048
}

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultReadChunk        = 2048
	handshakePollDelay      = 10 * time.Millisecond
)

// Option mutates session construction.
type Option func(*WSSession)

// WithEntropy injects the random source used for the client key and mask
// keys. Tests use a fixed reader to get deterministic wire bytes.
func WithEntropy(r io.Reader) Option {
	return func(s *WSSession) { s.entropy = r }
}

// WSSession owns one transport for its whole lifetime. No other component
// may read or write it directly.
type WSSession struct {
	cfg     Config
	dialer  api.Dialer
	tr      api.Transport
	entropy io.Reader

	state    State
	recvBuf  []byte
	pending  *queue.Queue // of *Message
	failed   bool         // transport error already surfaced
	closeRcv bool

	bytesSent      int64
	bytesReceived  int64
	framesSent     int64
	framesReceived int64
}

// NewWSSession constructs an unconnected session.
func NewWSSession(d api.Dialer, cfg Config, opts ...Option) *WSSession {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.ReadChunk <= 0 {
		cfg.ReadChunk = defaultReadChunk
	}
	s := &WSSession{
		cfg:     cfg,
		dialer:  d,
		pending: queue.New(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewAttached wraps an already-upgraded transport in an Open session. Used by
// tests and by integrations whose handshake is performed by a collaborator.
func NewAttached(tr api.Transport, opts ...Option) *WSSession {
	s := &WSSession{
		cfg:     Config{ReadChunk: defaultReadChunk},
		tr:      tr,
		state:   StateOpen,
		pending: queue.New(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *WSSession) State() State {
	return s.state
}

// Connect dials the transport, sends the upgrade request, and polls for the
// server response until the handshake timeout elapses. On success the session
// is Open; on any failure the transport is released and the session is
// Closed.
func (s *WSSession) Connect() error {
	if s.state != StateClosed {
		return fmt.Errorf("connect in state %s: %w", s.state, api.ErrInvalidArgument)
	}
	if s.dialer == nil {
		return api.ErrInvalidArgument
	}

	tr, err := s.dialer.Dial(s.cfg.Host, s.cfg.Port)
	if err != nil {
		return fmt.Errorf("transport open: %w", err)
	}
	s.tr = tr
	s.state = StateHandshaking
	s.failed = false
	s.recvBuf = s.recvBuf[:0]

	hs, err := protocol.NewClientHandshake(s.entropy)
	if err != nil {
		return s.abortConnect(err)
	}
	req := hs.BuildUpgradeRequest(s.hostHeader(), s.cfg.Path, s.cfg.Headers)
	if err := s.writeFull(req); err != nil {
		return s.abortConnect(fmt.Errorf("handshake send: %w", err))
	}

	deadline := time.Now().Add(s.cfg.HandshakeTimeout)
	for {
		if err := s.ingest(); err != nil {
			return s.abortConnect(fmt.Errorf("handshake read: %w", err))
		}
		if protocol.ResponseComplete(s.recvBuf) {
			break
		}
		if time.Now().After(deadline) {
			return s.abortConnect(fmt.Errorf("handshake response: %w", api.ErrOperationTimeout))
		}
		time.Sleep(handshakePollDelay)
	}

	leftover, err := hs.ValidateUpgradeResponse(s.recvBuf)
	if err != nil {
		return s.abortConnect(err)
	}
	// Frames may ride in on the same segment as the 101.
	s.recvBuf = append(s.recvBuf[:0], leftover...)
	s.state = StateOpen
	return nil
}

// Send serializes one masked frame and writes it fully to the transport.
// Valid only while the session is Open.
func (s *WSSession) Send(opcode byte, payload []byte) error {
	if s.state != StateOpen {
		return api.ErrNotConnected
	}
	return s.sendFrame(opcode, payload)
}

func (s *WSSession) sendFrame(opcode byte, payload []byte) error {
	key, err := protocol.NewMaskKey(s.entropy)
	if err != nil {
		return err
	}
	data, err := protocol.EncodeFrameWithKey(opcode, payload, key)
	if err != nil {
		return err
	}
	if err := s.writeFull(data); err != nil {
		s.teardown()
		return fmt.Errorf("frame send: %w", err)
	}
	s.framesSent++
	s.bytesSent += int64(len(payload))
	return nil
}

// Pump reads whatever bytes the transport has buffered, decodes as many
// frames as are complete, auto-answers pings, tracks close, and queues
// Text/Binary payloads for Next. Each call may see zero, one, or many frames.
//
// A peer Close or transport failure is reported exactly once as
// api.ErrTransportClosed; afterwards Pump returns api.ErrNotConnected.
func (s *WSSession) Pump() error {
	if s.state != StateOpen && s.state != StateClosing {
		return api.ErrNotConnected
	}
	if err := s.ingest(); err != nil {
		s.teardown()
		return fmt.Errorf("transport read: %w", err)
	}

	for {
		frame, consumed, err := protocol.DecodeFrameFromBytes(s.recvBuf)
		if err != nil {
			// Fatal framing error: the stream can no longer be trusted.
			s.teardown()
			return err
		}
		if frame == nil {
			return nil // need more bytes
		}
		s.compact(consumed)
		s.framesReceived++
		s.bytesReceived += frame.PayloadLen

		if done, err := s.handleFrame(frame); done {
			return err
		}
	}
}

// handleFrame processes one decoded frame. It returns done=true when the
// pump loop must stop (session closed).
func (s *WSSession) handleFrame(frame *protocol.WSFrame) (bool, error) {
	switch frame.Opcode {
	case protocol.OpcodePing:
		// Immediately respond with Pong using the same payload; pings are
		// never surfaced to the application.
		if err := s.sendFrame(protocol.OpcodePong, frame.Payload); err != nil {
			return true, err
		}
		return false, nil

	case protocol.OpcodePong:
		return false, nil

	case protocol.OpcodeClose:
		s.closeRcv = true
		if s.state == StateOpen {
			s.state = StateClosing
			_ = s.sendFrame(protocol.OpcodeClose, frame.Payload)
		}
		s.teardown()
		return true, api.ErrTransportClosed

	case protocol.OpcodeContinuation:
		// This client never negotiates fragmentation; reject rather than
		// silently corrupt a message stream we cannot reassemble.
		s.teardown()
		return true, protocol.ErrProtocolViolation

	default: // Text, Binary
		if !frame.IsFinal {
			s.teardown()
			return true, protocol.ErrProtocolViolation
		}
		s.pending.Add(&Message{Opcode: frame.Opcode, Payload: frame.Payload})
		return false, nil
	}
}

// Next pops the oldest complete application message, if any.
func (s *WSSession) Next() (*Message, bool) {
	if s.pending.Length() == 0 {
		return nil, false
	}
	return s.pending.Remove().(*Message), true
}

// PollMessage pumps until a message is available or the deadline passes.
func (s *WSSession) PollMessage(deadline time.Time) (*Message, error) {
	for {
		if msg, ok := s.Next(); ok {
			return msg, nil
		}
		if err := s.Pump(); err != nil {
			return nil, err
		}
		if msg, ok := s.Next(); ok {
			return msg, nil
		}
		if time.Now().After(deadline) {
			return nil, api.ErrOperationTimeout
		}
		time.Sleep(handshakePollDelay)
	}
}

// Close sends a Close frame with the normal-closure code and releases the
// transport. Idempotent.
func (s *WSSession) Close() error {
	return s.CloseWithReason(protocol.CloseNormalClosure, "")
}

// CloseWithReason sends a Close frame carrying the given status code and
// reason before releasing the transport.
func (s *WSSession) CloseWithReason(code int, reason string) error {
	if s.state == StateClosed {
		return nil
	}
	if s.state == StateOpen {
		s.state = StateClosing
		_ = s.sendFrame(protocol.OpcodeClose, protocol.ClosePayload(code, reason))
	}
	s.teardown()
	return nil
}

// GetStats returns a snapshot of session statistics for metrics reporting.
func (s *WSSession) GetStats() map[string]int64 {
	return map[string]int64{
		"bytes_received":  s.bytesReceived,
		"bytes_sent":      s.bytesSent,
		"frames_received": s.framesReceived,
		"frames_sent":     s.framesSent,
	}
}

// PublishStats pushes the session counters into a metrics registry.
func (s *WSSession) PublishStats(mr *control.MetricsRegistry) {
	for k, v := range s.GetStats() {
		mr.Set("ws."+k, v)
	}
}

// ingest moves any available transport bytes into the receive buffer. It
// always issues at least one Read so terminal transport errors (EOF, reset)
// surface even when Available reports nothing buffered; an idle transport
// reports (0, nil).
func (s *WSSession) ingest() error {
	if s.failed {
		return api.ErrTransportClosed
	}
	chunk := make([]byte, s.cfg.ReadChunk)
	for {
		n, err := s.tr.Read(chunk)
		if n > 0 {
			s.recvBuf = append(s.recvBuf, chunk[:n]...)
		}
		if err != nil {
			return err
		}
		if n == 0 || s.tr.Available() == 0 {
			return nil
		}
	}
}

// compact advances the receive buffer past one consumed frame, reusing the
// underlying array.
func (s *WSSession) compact(consumed int) {
	rest := copy(s.recvBuf, s.recvBuf[consumed:])
	s.recvBuf = s.recvBuf[:rest]
}

// writeFull loops until the whole buffer is written or the transport errors.
func (s *WSSession) writeFull(data []byte) error {
	for len(data) > 0 {
		n, err := s.tr.Write(data)
		if err != nil {
			return err
		}
		if n <= 0 {
			return api.ErrTransportClosed
		}
		data = data[n:]
	}
	return nil
}

func (s *WSSession) abortConnect(err error) error {
	s.teardown()
	return err
}

// teardown releases the transport and moves the session to Closed. Subsequent
// error reports are suppressed.
func (s *WSSession) teardown() {
	if s.tr != nil {
		_ = s.tr.Close()
	}
	s.state = StateClosed
	s.failed = true
}

func (s *WSSession) hostHeader() string {
	if s.cfg.Port == 443 || s.cfg.Port == 80 || s.cfg.Port == 0 {
		return s.cfg.Host
	}
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}
