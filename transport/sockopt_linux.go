//go:build linux

// File: transport/sockopt_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket tuning for the realtime audio path: disable Nagle so small JSON
// events leave immediately, widen the receive buffer for audio delta bursts.

package transport

import (
	"net"

	"golang.org/x/sys/unix"
)

const recvBufSize = 1 << 16

func tuneConn(c net.Conn) {
	tc, ok := c.(*net.TCPConn)
	if !ok {
		return
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, recvBufSize)
	})
}
