// File: api/interfaces.go
// Package api defines the contracts between the protocol core and its
// collaborators: the uplink byte-stream socket and buffer pooling.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Transport abstracts an ordered, connected byte-stream socket. TLS, DNS and
// link attachment are handled below this interface; the protocol core only
// ever sees open/write/available/read/close semantics.
//
// Read and Available must not block indefinitely: Read returns (0, nil) when
// no data is currently buffered. Write may perform a partial write; callers
// loop until the full buffer is on the wire or an error is returned.
type Transport interface {
	// Write writes buffer contents into the connection.
	Write(p []byte) (n int, err error)

	// Available reports how many bytes can be read without blocking.
	Available() int

	// Read reads into a preallocated buffer.
	Read(p []byte) (n int, err error)

	// Close shuts down the connection and notifies upstream layers.
	Close() error
}

// Dialer opens a connected Transport to a remote endpoint.
type Dialer interface {
	Dial(host string, port int) (Transport, error)
}

// BytePool defines a zero-copy, reusable buffer pool.
type BytePool interface {
	Get() []byte
	Put([]byte)
}
