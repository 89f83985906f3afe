//go:build windows

package transport

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/windows"
)

// Control sets SO_REUSEADDR, the only coexistence knob Windows exposes;
// SO_REUSEPORT has no Windows equivalent, and Windows' SO_REUSEADDR already
// permits multiple processes to bind the same port (unlike POSIX, where it
// only covers TIME_WAIT reuse).
func Control(_, _ string, c syscall.RawConn) error {
	var setErr error
	err := c.Control(func(fd uintptr) {
		if e := windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1); e != nil {
			setErr = fmt.Errorf("SO_REUSEADDR: %w", e)
		}
	})
	if err != nil {
		return fmt.Errorf("raw conn control: %w", err)
	}
	return setErr
}
