// File: client/integration_test.go
// Package client
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// End-to-end checks against a real WebSocket server (gorilla/websocket) over
// a real TCP transport: handshake, masking, echo, ping, close.

package client

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/realtime-ws/api"
	"github.com/momentics/realtime-ws/protocol"
	"github.com/momentics/realtime-ws/transport"
)

func startEchoServer(t *testing.T) (host string, port int, cleanup func()) {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))

	h, p, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, err = strconv.Atoi(p)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return h, port, srv.Close
}

func TestIntegrationEcho(t *testing.T) {
	host, port, cleanup := startEchoServer(t)
	defer cleanup()

	s := NewWSSession(transport.NewDialer(), Config{
		Host:             host,
		Port:             port,
		Path:             "/",
		HandshakeTimeout: 5 * time.Second,
	})
	if err := s.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Close()

	payloads := []string{`{"type":"session.update"}`, "second message", ""}
	for _, p := range payloads {
		if err := s.Send(protocol.OpcodeText, []byte(p)); err != nil {
			t.Fatalf("Send(%q) failed: %v", p, err)
		}
		msg, err := s.PollMessage(time.Now().Add(5 * time.Second))
		if err != nil {
			t.Fatalf("PollMessage(%q) failed: %v", p, err)
		}
		if msg.Opcode != protocol.OpcodeText || string(msg.Payload) != p {
			t.Errorf("echo = op %d %q, want text %q", msg.Opcode, msg.Payload, p)
		}
	}
}

func TestIntegrationBinaryEcho(t *testing.T) {
	host, port, cleanup := startEchoServer(t)
	defer cleanup()

	s := NewWSSession(transport.NewDialer(), Config{Host: host, Port: port, Path: "/"})
	if err := s.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Close()

	// Large enough to exercise the 16-bit length form and several TCP reads.
	payload := make([]byte, 48*1024)
	for i := range payload {
		payload[i] = byte(i)
	}
	if err := s.Send(protocol.OpcodeBinary, payload); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	msg, err := s.PollMessage(time.Now().Add(5 * time.Second))
	if err != nil {
		t.Fatalf("PollMessage failed: %v", err)
	}
	if msg.Opcode != protocol.OpcodeBinary || len(msg.Payload) != len(payload) {
		t.Fatalf("echo = op %d, %d bytes", msg.Opcode, len(msg.Payload))
	}
	for i := range payload {
		if msg.Payload[i] != payload[i] {
			t.Fatalf("payload byte %d = %#x, want %#x", i, msg.Payload[i], payload[i])
		}
	}
}

// TestIntegrationPeerDropWithoutClose: a link that dies without sending a
// Close frame must fail Pump promptly and force the session Closed.
func TestIntegrationPeerDropWithoutClose(t *testing.T) {
	local, remote := net.Pipe()
	s := NewAttached(transport.NewNetConn(local, nil))

	remote.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		err := s.Pump()
		if err != nil {
			if errors.Is(err, api.ErrNotConnected) {
				t.Fatalf("session reported not-connected before surfacing the failure")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Pump never surfaced the dead transport")
		}
	}
	if s.State() != StateClosed {
		t.Errorf("state = %s, want closed", s.State())
	}
	if err := s.Pump(); !errors.Is(err, api.ErrNotConnected) {
		t.Fatalf("Pump after failure: got %v, want ErrNotConnected", err)
	}
}

func TestIntegrationServerClose(t *testing.T) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		// Hold the socket open long enough for the client to read the frame.
		time.Sleep(200 * time.Millisecond)
		conn.Close()
	}))
	defer srv.Close()

	h, p, _ := net.SplitHostPort(srv.Listener.Addr().String())
	port, _ := strconv.Atoi(p)

	s := NewWSSession(transport.NewDialer(), Config{Host: h, Port: port, Path: "/"})
	if err := s.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		err := s.Pump()
		if errors.Is(err, api.ErrTransportClosed) {
			break
		}
		if err != nil {
			t.Fatalf("Pump failed with %v before peer close", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("peer close never surfaced")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if s.State() != StateClosed {
		t.Errorf("state = %s, want closed", s.State())
	}
}
