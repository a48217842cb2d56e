// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Implements the client-side WebSocket wire protocol (RFC 6455) for
// realtime-ws: frame encoding/decoding over caller-owned buffers and the
// HTTP/1.1 Upgrade handshake.
//
// The codec is pure: it performs no I/O and decodes incrementally, so it can
// sit on top of any transport that delivers bytes in arbitrary-sized chunks.
//
// Includes:
//   - Frame encoding with client-side masking per RFC 6455
//   - Streaming-safe decoding that reports consumed length
//   - Sec-WebSocket-Key/Accept negotiation and strict 101 validation
package protocol
