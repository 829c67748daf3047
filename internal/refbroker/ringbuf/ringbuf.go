// Package ringbuf is a lock-free, multi-producer, single-consumer ring
// buffer that feeds order requests to one matching.Engine goroutine at a
// time, so the matching core itself never needs a mutex.
package ringbuf

import (
	"errors"

	"github.com/rishav/goldmine/internal/refbroker/orderbook"
	"github.com/rishav/goldmine/internal/refbroker/matching"
)

// RequestKind selects which Engine method a slot's request invokes.
type RequestKind uint8

const (
	NewOrder RequestKind = iota
	CancelOrder
)

// Request is one unit of work destined for the matching engine.
type Request struct {
	Kind RequestKind

	Order *matching.Order // for NewOrder

	Symbol  string // for CancelOrder
	Side    orderbook.Side
	OrderID uint64
}

// Response carries an Engine call's outcome back to the submitter.
type Response struct {
	Result *matching.ExecutionResult // set for NewOrder
	Order  *matching.Order           // set for CancelOrder
	Err    error
}

// slot is cache-line padded to avoid false sharing between producers
// racing to claim adjacent slots.
type slot struct {
	seq        uint64
	request    *Request
	responseCh chan *Response
	_          [40]byte
}

// ErrFull is returned once the buffer is saturated and the producer has
// exhausted its spin budget.
var ErrFull = errors.New("refbroker/ringbuf: buffer full")

// RingBuffer is a fixed power-of-2 sized array of slots.
type RingBuffer struct {
	size           uint64
	mask           uint64
	slots          []slot
	cursor         uint64
	gatingSequence uint64
	_              [40]byte
}

// New creates a RingBuffer with the given power-of-2 size.
func New(size uint64) *RingBuffer {
	if size == 0 || size&(size-1) != 0 {
		panic("refbroker/ringbuf: size must be a power of 2")
	}
	return &RingBuffer{size: size, mask: size - 1, slots: make([]slot, size)}
}
