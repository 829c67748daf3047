//go:build !windows

package transport

import (
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// setSockTimeout translates a millisecond-granularity timeout into a real
// SO_RCVTIMEO/SO_SNDTIMEO socket option, grounded on runZeroInc-sockstats'
// raw socket-option plumbing (pkg/linux, pkg/tcpinfo) rather than Go's
// wall-clock net.Conn.SetDeadline, which can't express "no timeout" (0)
// as a kernel-level option the way spec.md's ReceiveTimeout/SendTimeout
// do.
func setSockTimeout(conn net.Conn, opt Option, d time.Duration) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return ErrUnsupportedOption
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return err
	}

	tv := unix.NsecToTimeval(d.Nanoseconds())
	var sockoptErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		var which int
		switch opt {
		case ReceiveTimeout:
			which = unix.SO_RCVTIMEO
		case SendTimeout:
			which = unix.SO_SNDTIMEO
		default:
			sockoptErr = ErrUnsupportedOption
			return
		}
		sockoptErr = unix.SetsockoptTimeval(int(fd), unix.SOL_SOCKET, which, &tv)
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return sockoptErr
}
