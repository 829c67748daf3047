//go:build windows

package transport

import (
	"net"
	"time"
)

// setSockTimeout is a no-op on Windows: golang.org/x/sys/unix's
// SO_RCVTIMEO/SO_SNDTIMEO constants don't apply there. TCPLine/UnixLine
// still enforce the timeout portably via conn.SetReadDeadline/
// SetWriteDeadline on every call; this hook exists only so the
// unix-specific kernel-level option set in sockopt.go has a build-tagged
// counterpart instead of breaking the Windows build.
func setSockTimeout(conn net.Conn, opt Option, d time.Duration) error {
	return nil
}
