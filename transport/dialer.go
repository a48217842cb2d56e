// File: transport/dialer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TCP/TLS dialer producing api.Transport values. On targets where TLS is not
// terminated below the socket (development hosts, integration tests against
// plain listeners) the dialer can supply it; the protocol core never knows.

package transport

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/momentics/realtime-ws/api"
	"github.com/momentics/realtime-ws/pool"
)

// DefaultDialTimeout bounds the TCP connect.
const DefaultDialTimeout = 10 * time.Second

// Dialer opens tuned TCP connections, optionally wrapped in TLS.
type Dialer struct {
	Timeout   time.Duration
	TLSConfig *tls.Config  // nil = plain TCP (TLS handled below the socket)
	Pool      api.BytePool // staging buffers shared across connections
}

// NewDialer constructs a dialer with a shared staging pool.
func NewDialer() *Dialer {
	return &Dialer{
		Timeout: DefaultDialTimeout,
		Pool:    pool.NewBytePool(2048, 64),
	}
}

// Dial connects to host:port and returns a transport ready for the WebSocket
// handshake.
func (d *Dialer) Dial(host string, port int) (api.Transport, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	tuneConn(conn)

	if d.TLSConfig != nil {
		cfg := d.TLSConfig.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = host
		}
		tc := tls.Client(conn, cfg)
		if err := tc.Handshake(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("tls handshake %s: %w", addr, err)
		}
		return NewNetConn(tc, d.Pool), nil
	}

	return NewNetConn(conn, d.Pool), nil
}

func newFallbackPool() api.BytePool {
	return pool.NewBytePool(2048, 16)
}
