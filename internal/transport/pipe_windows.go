//go:build windows

package transport

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/windows"
)

// pipeLine backs Line with a Windows named pipe handle. Timeouts are
// enforced by running the blocking ReadFile/WriteFile on its own goroutine
// and returning (0, nil) when a timer fires first; the pending call is not
// cancelled. Named pipe handles don't have a SetReadDeadline-equivalent
// the way net.Conn does.
type pipeLine struct {
	handle      windows.Handle
	recvTimeout time.Duration
	sendTimeout time.Duration
}

func (l *pipeLine) Read(buf []byte) (int, error) {
	var n uint32
	done := make(chan error, 1)
	go func() {
		_, err := readFile(l.handle, buf, &n)
		done <- err
	}()

	if l.recvTimeout <= 0 {
		err := <-done
		return int(n), translatePipeErr(err)
	}
	select {
	case err := <-done:
		return int(n), translatePipeErr(err)
	case <-time.After(l.recvTimeout):
		return 0, nil // Timeout, not an error — spec.md §4.3
	}
}

func (l *pipeLine) Write(buf []byte) (int, error) {
	var n uint32
	done := make(chan error, 1)
	go func() {
		err := windows.WriteFile(l.handle, buf, &n, nil)
		done <- err
	}()

	if l.sendTimeout <= 0 {
		err := <-done
		return int(n), translatePipeErr(err)
	}
	select {
	case err := <-done:
		return int(n), translatePipeErr(err)
	case <-time.After(l.sendTimeout):
		return 0, nil
	}
}

func readFile(h windows.Handle, buf []byte, n *uint32) (int, error) {
	err := windows.ReadFile(h, buf, n, nil)
	return int(*n), err
}

func translatePipeErr(err error) error {
	if err == nil {
		return nil
	}
	return ErrConnectionLost
}

func (l *pipeLine) SetOption(opt Option, value time.Duration) error {
	switch opt {
	case ReceiveTimeout:
		l.recvTimeout = value
	case SendTimeout:
		l.sendTimeout = value
	default:
		return ErrUnsupportedOption
	}
	return nil
}

func (l *pipeLine) Close() error {
	return windows.CloseHandle(l.handle)
}

// pipeAcceptor serves one named-pipe path, creating a fresh pipe
// instance for each accepted connection (Windows named pipes are
// one-client-per-handle, unlike a Unix socket's single listening fd).
type pipeAcceptor struct {
	path string
	mu   sync.Mutex
}

func (a *pipeAcceptor) WaitConnection(timeout time.Duration) (Line, error) {
	pathPtr, err := windows.UTF16PtrFromString(a.path)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	h, err := windows.CreateNamedPipe(
		pathPtr,
		windows.PIPE_ACCESS_DUPLEX,
		windows.PIPE_TYPE_BYTE|windows.PIPE_READMODE_BYTE|windows.PIPE_WAIT,
		windows.PIPE_UNLIMITED_INSTANCES,
		65536, 65536, 0, nil,
	)
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		done <- windows.ConnectNamedPipe(h, nil)
	}()

	select {
	case err := <-done:
		if err != nil && err != windows.ERROR_PIPE_CONNECTED {
			windows.CloseHandle(h)
			return nil, err
		}
		return &pipeLine{handle: h}, nil
	case <-time.After(timeout):
		windows.CloseHandle(h)
		return nil, nil
	}
}

func (a *pipeAcceptor) Close() error { return nil }

// LocalFactory implements Factory for the "local" scheme using named
// pipes on Windows. rest is the pipe's base name; it is rendered under
// \\.\pipe\ per Windows convention.
type LocalFactory struct{}

func NewLocalFactory() *LocalFactory { return &LocalFactory{} }

func (f *LocalFactory) Scheme() string { return "local" }

func pipePath(rest string) string {
	return fmt.Sprintf(`\\.\pipe\%s`, rest)
}

func (f *LocalFactory) Dial(rest string) (Line, error) {
	path := pipePath(rest)
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(
		pathPtr,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0, nil, windows.OPEN_EXISTING, 0, 0,
	)
	if err != nil {
		return nil, err
	}
	return &pipeLine{handle: h}, nil
}

func (f *LocalFactory) Listen(rest string) (Acceptor, error) {
	return &pipeAcceptor{path: pipePath(rest)}, nil
}
