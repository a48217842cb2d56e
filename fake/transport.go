// File: fake/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// In-memory api.Transport for tests: scripted inbound bytes, captured
// outbound bytes, optional partial writes and injected failures.

package fake

import (
	"bytes"

	"github.com/momentics/realtime-ws/protocol"
)

// Transport is a scriptable in-memory byte-stream socket.
type Transport struct {
	in     bytes.Buffer
	out    bytes.Buffer
	closed bool

	// WriteLimit caps the bytes accepted per Write call (0 = unlimited),
	// exercising the caller's full-write loop.
	WriteLimit int

	// WriteErr, when set, is returned by the next Write.
	WriteErr error

	// ReadErr, when set, is returned by the next Read once the scripted
	// bytes are drained.
	ReadErr error
}

// QueueBytes schedules raw inbound bytes.
func (t *Transport) QueueBytes(b []byte) {
	t.in.Write(b)
}

// QueueFrame schedules one unmasked server-to-client frame.
func (t *Transport) QueueFrame(opcode byte, payload []byte) {
	data, err := protocol.EncodeFrame(opcode, payload, false)
	if err != nil {
		panic(err)
	}
	t.in.Write(data)
}

// Available reports the scripted bytes not yet read.
func (t *Transport) Available() int {
	return t.in.Len()
}

// Read drains scripted bytes.
func (t *Transport) Read(p []byte) (int, error) {
	if t.in.Len() == 0 {
		if t.ReadErr != nil {
			err := t.ReadErr
			t.ReadErr = nil
			return 0, err
		}
		return 0, nil
	}
	return t.in.Read(p)
}

// Write captures outbound bytes, honoring WriteLimit and WriteErr.
func (t *Transport) Write(p []byte) (int, error) {
	if t.WriteErr != nil {
		err := t.WriteErr
		t.WriteErr = nil
		return 0, err
	}
	if t.WriteLimit > 0 && len(p) > t.WriteLimit {
		p = p[:t.WriteLimit]
	}
	return t.out.Write(p)
}

// Close marks the transport closed.
func (t *Transport) Close() error {
	t.closed = true
	return nil
}

// Closed reports whether Close was called.
func (t *Transport) Closed() bool {
	return t.closed
}

// Written returns all captured outbound bytes.
func (t *Transport) Written() []byte {
	return t.out.Bytes()
}

// NextWrittenFrame decodes and removes one frame from the captured outbound
// stream. Returns nil when no complete frame has been written.
func (t *Transport) NextWrittenFrame() *protocol.WSFrame {
	frame, consumed, err := protocol.DecodeFrameFromBytes(t.out.Bytes())
	if err != nil || frame == nil {
		return nil
	}
	t.out.Next(consumed)
	return frame
}
