// File: transport/netconn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// NetConn adapts a net.Conn to the api.Transport contract the protocol core
// expects: non-blocking reads and an availability probe, matching the
// open/send/available/receive/close surface of a modem socket.

package transport

import (
	"net"
	"time"

	"github.com/momentics/realtime-ws/api"
)

// probeTimeout bounds how long Available and Read may block on the socket.
const probeTimeout = 5 * time.Millisecond

// NetConn implements api.Transport over a net.Conn using pool-backed staging
// buffers.
type NetConn struct {
	conn  net.Conn
	pool  api.BytePool
	stash []byte // bytes drained by Available, served by the next Read
	err   error  // terminal error latched by Available, surfaced by Read
}

// NewNetConn wraps an already-connected conn. Pass nil for pool to use a
// private pool.
func NewNetConn(conn net.Conn, pool api.BytePool) *NetConn {
	if pool == nil {
		pool = newFallbackPool()
	}
	return &NetConn{conn: conn, pool: pool}
}

// Available reports how many buffered bytes the next Read can return without
// blocking. It probes the socket with a short read deadline and stashes
// whatever arrives.
func (n *NetConn) Available() int {
	if len(n.stash) > 0 {
		return len(n.stash)
	}
	buf := n.pool.Get()
	_ = n.conn.SetReadDeadline(time.Now().Add(probeTimeout))
	r, err := n.conn.Read(buf)
	_ = n.conn.SetReadDeadline(time.Time{})
	if r > 0 {
		n.stash = append(n.stash, buf[:r]...)
	}
	n.pool.Put(buf)
	if err != nil && !isTimeout(err) && n.err == nil {
		// Latch the failure for the next Read; data already stashed is
		// still delivered first.
		n.err = err
	}
	return len(n.stash)
}

// Read drains stashed bytes first, then performs one bounded read on the
// socket. Returns (0, nil) when nothing is available within the probe window.
func (n *NetConn) Read(p []byte) (int, error) {
	if len(n.stash) > 0 {
		r := copy(p, n.stash)
		rest := copy(n.stash, n.stash[r:])
		n.stash = n.stash[:rest]
		return r, nil
	}
	if n.err != nil {
		return 0, n.err
	}
	_ = n.conn.SetReadDeadline(time.Now().Add(probeTimeout))
	r, err := n.conn.Read(p)
	_ = n.conn.SetReadDeadline(time.Time{})
	if isTimeout(err) {
		return r, nil
	}
	return r, err
}

// Write writes buffer contents into the connection.
func (n *NetConn) Write(p []byte) (int, error) {
	return n.conn.Write(p)
}

// Close closes the underlying connection.
func (n *NetConn) Close() error {
	return n.conn.Close()
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
