// File: transport/netconn_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
)

func TestNetConnReadWrite(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	nc := NewNetConn(local, nil)
	defer nc.Close()

	go func() {
		_, _ = remote.Write([]byte("payload"))
	}()

	buf := make([]byte, 64)
	total := 0
	for total < 7 {
		if nc.Available() == 0 {
			continue
		}
		n, err := nc.Read(buf[total:])
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		total += n
	}
	if !bytes.Equal(buf[:total], []byte("payload")) {
		t.Errorf("read %q", buf[:total])
	}
}

// TestNetConnPeerDrop: an abruptly closed peer must surface as a Read error
// after the Available probe observes it, not as a silent idle transport.
func TestNetConnPeerDrop(t *testing.T) {
	local, remote := net.Pipe()
	nc := NewNetConn(local, nil)
	defer nc.Close()

	remote.Close()
	nc.Available()

	_, err := nc.Read(make([]byte, 16))
	if err == nil {
		t.Fatal("Read on dead transport returned nil error")
	}
	if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
		t.Logf("peer drop surfaced as: %v", err)
	}
}

// TestNetConnStashBeforeError: bytes stashed by Available are delivered
// before the terminal failure surfaces.
func TestNetConnStashBeforeError(t *testing.T) {
	local, remote := net.Pipe()
	nc := NewNetConn(local, nil)
	defer nc.Close()

	done := make(chan struct{})
	go func() {
		_, _ = remote.Write([]byte("tail"))
		remote.Close()
		close(done)
	}()

	for nc.Available() == 0 {
	}
	<-done

	buf := make([]byte, 16)
	n, err := nc.Read(buf)
	if err != nil || string(buf[:n]) != "tail" {
		t.Fatalf("stashed bytes not delivered first: n=%d err=%v", n, err)
	}
	if _, err := nc.Read(buf); err == nil {
		t.Fatal("latched transport error not surfaced after stash drained")
	}
}
