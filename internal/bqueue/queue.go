// Package bqueue wraps internal/ring in a mutex and two condition
// variables, giving a blocking, disconnect-aware byte queue. It is the
// building block of the in-process transport.Line; the OS-backed lines
// (TCP, Unix, named pipe) do not use it but follow the same timeout
// semantics.
package bqueue

import (
	"sync"
	"time"

	"github.com/rishav/goldmine/internal/ring"
)

// ErrConnectionLost is returned from Read/Write when the queue has been
// marked disconnected and has no data left to satisfy the call.
var ErrConnectionLost = &connErr{}

type connErr struct{}

func (*connErr) Error() string { return "bqueue: connection lost" }

// Queue is a blocking byte queue: a ring.Buffer guarded by a mutex, a
// non-empty condition, a non-full condition, and a connected flag.
type Queue struct {
	mu        sync.Mutex
	notEmpty  *sync.Cond
	notFull   *sync.Cond
	buf       *ring.Buffer
	connected bool
}

// New creates a connected queue with the given byte capacity.
func New(capacity int) *Queue {
	q := &Queue{
		buf:       ring.New(capacity),
		connected: true,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Read blocks until at least one byte is available, the queue is
// disconnected, or it never had data to begin with on disconnect. It may
// return fewer bytes than len(dst).
func (q *Queue) Read(dst []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.buf.AvailableRead() == 0 {
		if !q.connected {
			return 0, ErrConnectionLost
		}
		q.notEmpty.Wait()
	}

	n := q.buf.Read(dst)
	q.notFull.Signal()
	return n, nil
}

// ReadTimeout is like Read but gives up and returns (0, nil) if no data
// arrives within d. A disconnected, empty queue still raises
// ErrConnectionLost in preference to a timeout.
func (q *Queue) ReadTimeout(dst []byte, d time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	deadline := time.Now().Add(d)

	// sync.Cond has no timed wait; a timer that broadcasts on the same
	// condition lets the waiting goroutine re-check its deadline like any
	// other wakeup cause.
	timer := time.AfterFunc(d, func() {
		q.mu.Lock()
		q.notEmpty.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()

	for q.buf.AvailableRead() == 0 {
		if !q.connected {
			return 0, ErrConnectionLost
		}
		if !time.Now().Before(deadline) {
			return 0, nil
		}
		q.notEmpty.Wait()
	}

	n := q.buf.Read(dst)
	q.notFull.Signal()
	return n, nil
}

// Write blocks until the full contents of src have been written or the
// queue disconnects. A single write larger than the queue's usable
// capacity fails immediately with (0, nil): it can never be satisfied.
func (q *Queue) Write(src []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(src) > q.buf.Cap() {
		return 0, nil
	}

	written := 0
	for written < len(src) {
		for q.buf.AvailableWrite() == 0 {
			if !q.connected {
				return written, ErrConnectionLost
			}
			q.notFull.Wait()
		}
		if !q.connected {
			return written, ErrConnectionLost
		}
		n := q.buf.Write(src[written:])
		written += n
		q.notEmpty.Signal()
	}
	return written, nil
}

// SetConnected flips the connected flag. Setting it to false wakes every
// waiter on both conditions; parked readers/writers observe
// ErrConnectionLost the next time their predicate is re-checked.
func (q *Queue) SetConnected(connected bool) {
	q.mu.Lock()
	q.connected = connected
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Connected reports the current connected state.
func (q *Queue) Connected() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.connected
}

