package ringbuf

import (
	"runtime"
	"sync/atomic"
)

// Sequencer hands out slot claims to producers via CAS, so many
// goroutines can call Submit concurrently while the consumer stays
// single-threaded.
type Sequencer struct {
	rb *RingBuffer
}

func NewSequencer(rb *RingBuffer) *Sequencer {
	return &Sequencer{rb: rb}
}

const maxClaimSpins = 10000

// next claims the following sequence number, spinning briefly if the
// buffer is currently full before giving up with ErrFull.
func (s *Sequencer) next() (uint64, error) {
	for spins := 0; spins < maxClaimSpins; spins++ {
		current := atomic.LoadUint64(&s.rb.cursor)
		candidate := current + 1

		gating := atomic.LoadUint64(&s.rb.gatingSequence)
		if candidate > gating+s.rb.size {
			runtime.Gosched()
			continue
		}
		if atomic.CompareAndSwapUint64(&s.rb.cursor, current, candidate) {
			return candidate, nil
		}
	}
	return 0, ErrFull
}

func (s *Sequencer) publish(seq uint64, req *Request, responseCh chan *Response) {
	slot := &s.rb.slots[seq&s.rb.mask]
	slot.request = req
	slot.responseCh = responseCh
	atomic.StoreUint64(&slot.seq, seq)
}

// Submit claims a slot, writes req into it, and returns immediately; the
// caller reads its result off the returned channel.
func (s *Sequencer) Submit(req *Request) (chan *Response, error) {
	seq, err := s.next()
	if err != nil {
		return nil, err
	}
	responseCh := make(chan *Response, 1)
	s.publish(seq, req, responseCh)
	return responseCh, nil
}
