// Package transport implements the Line/Acceptor abstraction: an
// ordered, bidirectional byte stream over TCP, Unix domain sockets,
// Windows named pipes, or an in-process loopback, plus a URI-scheme
// factory registry that picks the right variant for a given address.
//
// Grounded on original_source/io/ioline.h's capability set (read/write/
// setOption) expressed here, per spec.md's Design Notes §9, as a tagged
// set of concrete types behind one interface rather than a C++ abstract
// base class.
package transport

import (
	"errors"
	"time"
)

// Option identifies a settable Line option.
type Option int

const (
	// ReceiveTimeout bounds how long Read may block; SetOption takes it
	// as a time.Duration. 0 means block indefinitely.
	ReceiveTimeout Option = iota
	// SendTimeout bounds how long Write may block, as a time.Duration.
	SendTimeout
)

// ErrUnsupportedOption is returned by SetOption when a Line variant
// cannot honor the requested option (spec.md §7: UnsupportedOption is
// not a session-terminating condition).
var ErrUnsupportedOption = errors.New("transport: unsupported option")

// ErrConnectionLost indicates the peer closed or the in-proc endpoint was
// torn down.
var ErrConnectionLost = errors.New("transport: connection lost")

// ErrUnsupportedPlatform reports a transport that is not available on the
// current GOOS. No transport in this package returns it: the "local"
// scheme is served by Unix domain sockets off Windows and by named pipes
// on Windows.
var ErrUnsupportedPlatform = errors.New("transport: unsupported on this platform")

// Line is a bidirectional byte stream. Short reads and writes are legal;
// Read/Write return the number of bytes actually transferred.
//
// A Read of 0 with no error indicates either a timeout (if ReceiveTimeout
// is set) or, for transports that can't distinguish the two, a clean
// close treated as Timeout by the wire protocol layer (spec.md Design
// Notes: "The spec here chooses ConnectionLost when no timeout is
// configured and Timeout when one is").
type Line interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	SetOption(opt Option, value time.Duration) error
	Close() error
}
