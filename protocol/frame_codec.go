// File: protocol/frame_codec.go
// Package protocol implements the streaming WebSocket frame codec with
// payload size enforcement.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// DecodeFrameFromBytes is incremental: callers feed whatever bytes the
// transport has delivered and retry after more arrive. A frame is only
// returned once its full payload is present.

package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
)

// Fatal framing errors. Truncated input is not an error: the decoder reports
// it by returning (nil, 0, nil).
var (
	ErrFrameTooLarge      = fmt.Errorf("frame payload exceeds maximum allowed size")
	ErrUnsupportedOpcode  = fmt.Errorf("unsupported frame opcode")
	ErrProtocolViolation  = fmt.Errorf("websocket protocol violation")
	ErrPayloadTooLarge    = fmt.Errorf("payload too large to encode")
	ErrEntropyUnavailable = fmt.Errorf("cannot read mask key entropy")
)

// NewMaskKey draws a 4-byte masking key from r. Pass nil for crypto/rand.
func NewMaskKey(r io.Reader) ([4]byte, error) {
	var key [4]byte
	if r == nil {
		r = rand.Reader
	}
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, fmt.Errorf("%w: %w", ErrEntropyUnavailable, err)
	}
	return key, nil
}

// DecodeFrameFromBytes parses one WebSocket frame from raw, enforcing the
// maximum payload size. Returns the frame and the number of bytes consumed so
// the caller can compact its buffer and attempt to decode a further frame
// from the remainder. If the buffer does not yet hold a complete frame it
// returns (nil, 0, nil).
func DecodeFrameFromBytes(raw []byte) (*WSFrame, int, error) {
	if len(raw) < 2 {
		return nil, 0, nil // Incomplete
	}
	fin := raw[0]&FinBit != 0
	opcode := raw[0] & 0x0F
	masked := raw[1]&MaskBit != 0
	length := int64(raw[1] & 0x7F)
	offset := 2

	if raw[0]&RsvBits != 0 {
		// No extensions negotiated; RSV must be zero.
		return nil, 0, ErrProtocolViolation
	}
	if !IsValidOpcode(opcode) {
		return nil, 0, ErrUnsupportedOpcode
	}

	switch length {
	case 126:
		if len(raw) < offset+2 {
			return nil, 0, nil // Incomplete
		}
		length = int64(binary.BigEndian.Uint16(raw[offset:]))
		offset += 2
	case 127:
		if len(raw) < offset+8 {
			return nil, 0, nil // Incomplete
		}
		u := binary.BigEndian.Uint64(raw[offset:])
		if u > uint64(MaxFramePayload) {
			return nil, 0, ErrFrameTooLarge
		}
		length = int64(u)
		offset += 8
	}

	if length > MaxFramePayload {
		return nil, 0, ErrFrameTooLarge
	}
	if IsControlOpcode(opcode) {
		if length > MaxControlPayloadLen {
			return nil, 0, ErrProtocolViolation
		}
		if !fin {
			// Control frames must not be fragmented.
			return nil, 0, ErrProtocolViolation
		}
	}

	var maskKey [4]byte
	if masked {
		if len(raw) < offset+4 {
			return nil, 0, nil // Incomplete
		}
		copy(maskKey[:], raw[offset:offset+4])
		offset += 4
	}

	totalLen := offset + int(length)
	if len(raw) < totalLen {
		return nil, 0, nil // Incomplete
	}

	// Single copy out of the receive buffer; unmask while copying.
	payloadData := raw[offset:totalLen]
	payload := make([]byte, length)
	if masked {
		for i := int64(0); i < length; i++ {
			payload[i] = payloadData[i] ^ maskKey[i%4]
		}
	} else {
		copy(payload, payloadData)
	}

	return &WSFrame{
		IsFinal:    fin,
		Opcode:     opcode,
		Masked:     masked,
		PayloadLen: length,
		MaskKey:    maskKey,
		Payload:    payload,
	}, totalLen, nil
}

// EncodeFrame serializes a single unfragmented frame (FIN always set; this
// client never sends fragmented frames). When mask is true a random masking
// key is drawn from crypto/rand, as required for client-to-server frames.
func EncodeFrame(opcode byte, payload []byte, mask bool) ([]byte, error) {
	if !mask {
		return encodeFrame(opcode, payload, false, [4]byte{})
	}
	key, err := NewMaskKey(nil)
	if err != nil {
		return nil, err
	}
	return encodeFrame(opcode, payload, true, key)
}

// EncodeFrameWithKey serializes a masked frame using the supplied key.
// Intended for callers that inject their own entropy source and for tests
// that need deterministic wire bytes.
func EncodeFrameWithKey(opcode byte, payload []byte, key [4]byte) ([]byte, error) {
	return encodeFrame(opcode, payload, true, key)
}

func encodeFrame(opcode byte, payload []byte, mask bool, key [4]byte) ([]byte, error) {
	plen := len(payload)
	if plen > MaxFramePayload {
		return nil, ErrPayloadTooLarge
	}
	if IsControlOpcode(opcode) && plen > MaxControlPayloadLen {
		return nil, ErrProtocolViolation
	}

	var maskBit byte
	if mask {
		maskBit = MaskBit
	}

	dst := make([]byte, 0, MaxFrameHeaderLen+plen)
	dst = append(dst, FinBit|(opcode&0x0F))

	switch {
	case plen <= 125:
		dst = append(dst, byte(plen)|maskBit)
	case plen <= 0xFFFF:
		dst = append(dst, 126|maskBit)
		var ext [2]byte
		binary.BigEndian.PutUint16(ext[:], uint16(plen))
		dst = append(dst, ext[:]...)
	default:
		dst = append(dst, 127|maskBit)
		var ext [8]byte
		binary.BigEndian.PutUint64(ext[:], uint64(plen))
		dst = append(dst, ext[:]...)
	}

	if mask {
		dst = append(dst, key[:]...)
		start := len(dst)
		dst = append(dst, payload...)
		for i := 0; i < plen; i++ {
			dst[start+i] ^= key[i%4]
		}
		return dst, nil
	}

	dst = append(dst, payload...)
	return dst, nil
}

// ClosePayload builds the payload of a Close frame: a 2-byte big-endian
// status code followed by an optional UTF-8 reason.
func ClosePayload(code int, reason string) []byte {
	p := make([]byte, 2, 2+len(reason))
	binary.BigEndian.PutUint16(p, uint16(code))
	return append(p, reason...)
}
