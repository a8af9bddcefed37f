//go:build unix

package probe

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// fastCloseControl 在 connect 之前设置 SO_LINGER{1, 0}。
func fastCloseControl(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptLinger(int(fd), unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{Onoff: 1, Linger: 0})
	})
	if err != nil {
		return err
	}
	return sockErr
}
