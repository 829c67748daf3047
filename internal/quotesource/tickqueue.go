package quotesource

import (
	"sync/atomic"

	"github.com/rishav/goldmine/internal/model"
)

// DefaultQueueCapacity is the 1024-slot pull-mode tick queue capacity
// named in spec.md §3.5/§9.
const DefaultQueueCapacity = 1024

// TickEntry pairs a tick with the ticker it was published for — the
// session's filter is evaluated at publish time, so only the ticker
// name needs to ride along in the queue.
type TickEntry struct {
	Ticker string
	Tick   model.Tick
}

// tickSlot holds one published entry plus the sequence number that
// claimed it. Cache-line-padded the way the teacher's
// disruptor.RingBufferSlot pads its slots to avoid false sharing
// between the producer and consumer cache lines.
type tickSlot struct {
	seq   uint64
	entry TickEntry
	_     [8]byte
}

// TickQueue is a single-producer/single-consumer ring of ticks with
// drop-oldest overflow, adapted from the teacher's
// disruptor.RingBuffer/Sequencer: the same cache-line-padded slot and
// atomic-cursor shape, but genuinely single-producer (the server's
// publish path, spec.md §9), so claiming a slot is a plain atomic
// increment rather than the teacher's multi-producer CAS loop, and
// there is no ErrBufferFull — a full queue overwrites its oldest unread
// slot and the consumer detects the gap on its next Pop.
type TickQueue struct {
	mask        uint64
	slots       []tickSlot
	writeCursor uint64 // atomic; producer-owned
	readCursor  uint64 // consumer-owned, never touched by the producer
	dropped     uint64 // atomic; ticks overwritten before being read
}

// NewTickQueue builds a queue with capacity slots (rounded up to the
// next power of two).
func NewTickQueue(capacity int) *TickQueue {
	size := uint64(1)
	for size < uint64(capacity) {
		size <<= 1
	}
	return &TickQueue{
		mask:  size - 1,
		slots: make([]tickSlot, size),
	}
}

// Push publishes (ticker, tick). The producer thread is the only caller.
func (q *TickQueue) Push(ticker string, tick model.Tick) {
	next := atomic.AddUint64(&q.writeCursor, 1)
	idx := next & q.mask
	slot := &q.slots[idx]
	slot.entry = TickEntry{Ticker: ticker, Tick: tick}
	atomic.StoreUint64(&slot.seq, next) // release: publish entry before seq
}

// Pop returns the next tick in publish order, or (Tick{}, false) if
// nothing new has been published since the last Pop. The consumer
// thread is the only caller. If the producer has lapped the consumer by
// more than the queue's capacity, Pop jumps the read cursor forward to
// the oldest tick still held in a slot and records the gap in Dropped,
// rather than walking sequence numbers that have already been
// overwritten.
func (q *TickQueue) Pop() (TickEntry, bool) {
	capacity := q.mask + 1
	write := atomic.LoadUint64(&q.writeCursor)
	if write <= q.readCursor {
		return TickEntry{}, false
	}
	if write-q.readCursor > capacity {
		gap := write - q.readCursor - capacity
		atomic.AddUint64(&q.dropped, gap)
		q.readCursor = write - capacity
	}

	expected := q.readCursor + 1
	idx := expected & q.mask
	slot := &q.slots[idx]
	seq := atomic.LoadUint64(&slot.seq) // acquire: pairs with Push's release
	if seq != expected {
		// Producer is still mid-publish for this slot; nothing new yet.
		return TickEntry{}, false
	}

	q.readCursor = expected
	return slot.entry, true
}

// Dropped returns the cumulative number of ticks overwritten before
// being read.
func (q *TickQueue) Dropped() uint64 {
	return atomic.LoadUint64(&q.dropped)
}

// Len returns the approximate number of unread ticks.
func (q *TickQueue) Len() int {
	w := atomic.LoadUint64(&q.writeCursor)
	if w < q.readCursor {
		return 0
	}
	return int(w - q.readCursor)
}
