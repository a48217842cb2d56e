// File: protocol/handshake.go
// Package protocol implements the client-side WebSocket handshake for
// realtime-ws.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Builds the HTTP/1.1 Upgrade request, computes the expected
// Sec-WebSocket-Accept per RFC 6455, and validates the server response.
// Validation is strict: a 101 status alone is not sufficient, the accept key
// must match byte-exactly.

package protocol

import (
	"bytes"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Constants used for handshake processing.
const (
	WebSocketGUID            = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	HeaderSecWebSocketKey    = "Sec-WebSocket-Key"
	HeaderSecWebSocketAccept = "Sec-WebSocket-Accept"
	HeaderSecWebSocketVer    = "Sec-WebSocket-Version"
	RequiredWebSocketVersion = "13"
	MaxHandshakeResponseSize = 8192
)

// Errors for handshake validation.
var (
	ErrHandshakeBadStatus      = fmt.Errorf("handshake response status is not 101")
	ErrHandshakeMissingAccept  = fmt.Errorf("missing Sec-WebSocket-Accept header")
	ErrHandshakeAcceptMismatch = fmt.Errorf("Sec-WebSocket-Accept value mismatch")
	ErrHandshakeMalformed      = fmt.Errorf("malformed handshake response")
	ErrHandshakeTooLarge       = fmt.Errorf("handshake response headers too large")
)

var headerTerminator = []byte("\r\n\r\n")

// ComputeAcceptKey computes the Sec-WebSocket-Accept value from the client's
// key. This implements the algorithm specified in RFC 6455 Section 1.3.
func ComputeAcceptKey(clientKey string) string {
	hash := sha1.Sum([]byte(clientKey + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// ClientHandshake holds the per-attempt handshake state: the random client
// key and the accept value the server must echo back. Created once per
// connection attempt and discarded afterwards.
type ClientHandshake struct {
	Key            string
	expectedAccept string
}

// NewClientHandshake generates a fresh 16-byte client key from entropy.
// Pass nil to use crypto/rand.
func NewClientHandshake(entropy io.Reader) (*ClientHandshake, error) {
	if entropy == nil {
		entropy = rand.Reader
	}
	var raw [16]byte
	if _, err := io.ReadFull(entropy, raw[:]); err != nil {
		return nil, fmt.Errorf("handshake key entropy: %w", err)
	}
	return NewClientHandshakeFromKey(base64.StdEncoding.EncodeToString(raw[:])), nil
}

// NewClientHandshakeFromKey builds handshake state around a known client key.
func NewClientHandshakeFromKey(key string) *ClientHandshake {
	return &ClientHandshake{
		Key:            key,
		expectedAccept: ComputeAcceptKey(key),
	}
}

// ExpectedAccept returns the precomputed Sec-WebSocket-Accept value.
func (h *ClientHandshake) ExpectedAccept() string {
	return h.expectedAccept
}

// BuildUpgradeRequest formats the HTTP/1.1 GET Upgrade request. Extra headers
// (bearer auth, API beta flags) are appended in sorted order so the request
// bytes are deterministic for a given input.
func (h *ClientHandshake) BuildUpgradeRequest(host, path string, extra map[string]string) []byte {
	if path == "" {
		path = "/"
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "GET %s HTTP/1.1\r\n", path)
	fmt.Fprintf(&b, "Host: %s\r\n", host)
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	fmt.Fprintf(&b, "%s: %s\r\n", HeaderSecWebSocketKey, h.Key)
	fmt.Fprintf(&b, "%s: %s\r\n", HeaderSecWebSocketVer, RequiredWebSocketVersion)

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, extra[k])
	}

	b.WriteString("\r\n")
	return b.Bytes()
}

// ResponseComplete reports whether raw contains a full HTTP header block.
func ResponseComplete(raw []byte) bool {
	return bytes.Contains(raw, headerTerminator)
}

// ValidateUpgradeResponse checks the server's handshake response. It requires
// a 101 status line and a Sec-WebSocket-Accept header matching the expected
// value byte-exactly (header names are case-insensitive, the accept value is
// not). Any bytes following the header block are returned as leftover: the
// server may start sending frames in the same segment as the 101.
func (h *ClientHandshake) ValidateUpgradeResponse(raw []byte) ([]byte, error) {
	end := bytes.Index(raw, headerTerminator)
	if end < 0 {
		return nil, ErrHandshakeMalformed
	}
	if end > MaxHandshakeResponseSize {
		return nil, ErrHandshakeTooLarge
	}
	head := raw[:end]
	leftover := raw[end+len(headerTerminator):]

	lines := strings.Split(string(head), "\r\n")
	if len(lines) == 0 {
		return nil, ErrHandshakeMalformed
	}

	status := strings.SplitN(lines[0], " ", 3)
	if len(status) < 2 || !strings.HasPrefix(status[0], "HTTP/1.1") {
		return nil, ErrHandshakeMalformed
	}
	if status[1] != "101" {
		return nil, fmt.Errorf("%w: got %q", ErrHandshakeBadStatus, status[1])
	}

	accept, ok := headerValue(lines[1:], HeaderSecWebSocketAccept)
	if !ok {
		return nil, ErrHandshakeMissingAccept
	}
	if accept != h.expectedAccept {
		return nil, ErrHandshakeAcceptMismatch
	}

	return leftover, nil
}

// headerValue finds the first header with the given name, case-insensitively,
// and returns its trimmed value.
func headerValue(lines []string, name string) (string, bool) {
	for _, line := range lines {
		i := strings.IndexByte(line, ':')
		if i < 0 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(line[:i]), name) {
			return strings.TrimSpace(line[i+1:]), true
		}
	}
	return "", false
}
