//go:build linux

package transport

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// Control sets SO_REUSEADDR and, where the kernel supports it, SO_REUSEPORT
// so the interface manager's sockets can coexist with Avahi or
// systemd-resolved already bound to port 5353.
func Control(_, _ string, c syscall.RawConn) error {
	var setErr error
	err := c.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); e != nil {
			setErr = fmt.Errorf("SO_REUSEADDR: %w", e)
			return
		}
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); e != nil && e != unix.ENOPROTOOPT {
			setErr = fmt.Errorf("SO_REUSEPORT: %w", e)
		}
	})
	if err != nil {
		return fmt.Errorf("raw conn control: %w", err)
	}
	return setErr
}
