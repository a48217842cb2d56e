// File: protocol/handshake_test.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// RFC 6455 section 1.3 sample key and its accept value.
const (
	sampleKey    = "dGhlIHNhbXBsZSBub25jZQ=="
	sampleAccept = "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
)

func TestComputeAcceptKey(t *testing.T) {
	if got := ComputeAcceptKey(sampleKey); got != sampleAccept {
		t.Errorf("ComputeAcceptKey = %q, want %q", got, sampleAccept)
	}
}

func TestNewClientHandshakeDeterministic(t *testing.T) {
	entropy := bytes.NewReader(make([]byte, 16)) // sixteen zero bytes
	hs, err := NewClientHandshake(entropy)
	if err != nil {
		t.Fatalf("NewClientHandshake failed: %v", err)
	}
	if hs.Key != "AAAAAAAAAAAAAAAAAAAAAA==" {
		t.Errorf("key = %q", hs.Key)
	}
	if hs.ExpectedAccept() != ComputeAcceptKey(hs.Key) {
		t.Error("expected accept does not match computed accept")
	}
}

func TestNewClientHandshakeEntropyFailure(t *testing.T) {
	if _, err := NewClientHandshake(bytes.NewReader([]byte{1, 2, 3})); err == nil {
		t.Fatal("expected error from short entropy source")
	}
}

func TestBuildUpgradeRequest(t *testing.T) {
	hs := NewClientHandshakeFromKey(sampleKey)
	req := string(hs.BuildUpgradeRequest("api.example.com", "/v1/realtime?model=x", map[string]string{
		"Authorization": "Bearer sk-test",
		"OpenAI-Beta":   "realtime=v1",
	}))

	wantLines := []string{
		"GET /v1/realtime?model=x HTTP/1.1",
		"Host: api.example.com",
		"Upgrade: websocket",
		"Connection: Upgrade",
		"Sec-WebSocket-Key: " + sampleKey,
		"Sec-WebSocket-Version: 13",
		"Authorization: Bearer sk-test",
		"OpenAI-Beta: realtime=v1",
		"",
		"",
	}
	if got := strings.Split(req, "\r\n"); len(got) != len(wantLines) {
		t.Fatalf("request has %d lines, want %d:\n%s", len(got), len(wantLines), req)
	} else {
		for i, w := range wantLines {
			if got[i] != w {
				t.Errorf("line %d = %q, want %q", i, got[i], w)
			}
		}
	}
}

func TestBuildUpgradeRequestEmptyPath(t *testing.T) {
	hs := NewClientHandshakeFromKey(sampleKey)
	req := string(hs.BuildUpgradeRequest("h", "", nil))
	if !strings.HasPrefix(req, "GET / HTTP/1.1\r\n") {
		t.Errorf("request line: %q", strings.SplitN(req, "\r\n", 2)[0])
	}
}

func TestValidateUpgradeResponse(t *testing.T) {
	hs := NewClientHandshakeFromKey(sampleKey)

	t.Run("valid with leftover", func(t *testing.T) {
		resp := []byte("HTTP/1.1 101 Switching Protocols\r\n" +
			"Upgrade: websocket\r\n" +
			"Connection: Upgrade\r\n" +
			"sec-websocket-accept: " + sampleAccept + "\r\n" +
			"\r\n" +
			"\x81\x02hi")
		leftover, err := hs.ValidateUpgradeResponse(resp)
		if err != nil {
			t.Fatalf("ValidateUpgradeResponse failed: %v", err)
		}
		if !bytes.Equal(leftover, []byte("\x81\x02hi")) {
			t.Errorf("leftover = %x", leftover)
		}
	})

	t.Run("incomplete", func(t *testing.T) {
		_, err := hs.ValidateUpgradeResponse([]byte("HTTP/1.1 101 Switching Protocols\r\n"))
		if !errors.Is(err, ErrHandshakeMalformed) {
			t.Errorf("got %v, want ErrHandshakeMalformed", err)
		}
	})

	t.Run("non-101 status", func(t *testing.T) {
		_, err := hs.ValidateUpgradeResponse([]byte(
			"HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"))
		if !errors.Is(err, ErrHandshakeBadStatus) {
			t.Errorf("got %v, want ErrHandshakeBadStatus", err)
		}
	})

	t.Run("missing accept", func(t *testing.T) {
		_, err := hs.ValidateUpgradeResponse([]byte(
			"HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\n\r\n"))
		if !errors.Is(err, ErrHandshakeMissingAccept) {
			t.Errorf("got %v, want ErrHandshakeMissingAccept", err)
		}
	})

	t.Run("wrong accept", func(t *testing.T) {
		_, err := hs.ValidateUpgradeResponse([]byte(
			"HTTP/1.1 101 Switching Protocols\r\n" +
				"Sec-WebSocket-Accept: bm90IHRoZSByaWdodCB2YWx1ZQ==\r\n\r\n"))
		if !errors.Is(err, ErrHandshakeAcceptMismatch) {
			t.Errorf("got %v, want ErrHandshakeAcceptMismatch", err)
		}
	})
}

func TestResponseComplete(t *testing.T) {
	if ResponseComplete([]byte("HTTP/1.1 101\r\nX: y\r\n")) {
		t.Error("incomplete headers reported complete")
	}
	if !ResponseComplete([]byte("HTTP/1.1 101\r\n\r\n")) {
		t.Error("complete headers reported incomplete")
	}
}
