// Package ring implements a fixed-size, single-producer/single-consumer
// byte ring buffer with wrap-around.
//
// Design (carried over from the teacher's disruptor.RingBuffer cursor/
// index-mask discipline in internal/disruptor, adapted from a slot ring to a
// raw byte ring and from a power-of-2 multi-producer buffer to an
// arbitrary-size single-producer/single-consumer one):
//
//  1. Capacity-one sentinel: the buffer is considered full when
//     writePtr+1 == readPtr (mod N), so usable capacity is N-1.
//  2. Reads and writes never wrap more than once per call; a short read
//     or write is legal and the caller is expected to retry.
//  3. The buffer itself holds no lock. Safe concurrent use is the
//     responsibility of internal/bqueue, which wraps it with a mutex and
//     two condition variables.
package ring

// Buffer is a fixed-size byte ring. It is not safe for concurrent use.
type Buffer struct {
	data     []byte
	readPtr  int
	writePtr int
}

// New allocates a ring buffer with the given capacity. Usable capacity is
// size-1 because of the full/empty sentinel.
func New(size int) *Buffer {
	if size < 2 {
		size = 2
	}
	return &Buffer{data: make([]byte, size)}
}

// Cap returns the usable capacity (size - 1).
func (b *Buffer) Cap() int {
	return len(b.data) - 1
}

// AvailableRead returns the number of bytes currently readable.
func (b *Buffer) AvailableRead() int {
	n := len(b.data)
	if b.writePtr >= b.readPtr {
		return b.writePtr - b.readPtr
	}
	return n - b.readPtr + b.writePtr
}

// AvailableWrite returns the number of bytes that can be written before
// the buffer is full.
func (b *Buffer) AvailableWrite() int {
	return b.Cap() - b.AvailableRead()
}

// Read copies up to len(dst) bytes starting at readPtr, wrapping once if
// the contiguous span runs off the end of the backing array. It returns
// the number of bytes copied, which is 0 if the buffer is empty.
func (b *Buffer) Read(dst []byte) int {
	avail := b.AvailableRead()
	if avail == 0 || len(dst) == 0 {
		return 0
	}
	want := len(dst)
	if want > avail {
		want = avail
	}

	n := len(b.data)
	copied := 0
	for copied < want {
		chunk := want - copied
		if span := n - b.readPtr; chunk > span {
			chunk = span
		}
		copy(dst[copied:copied+chunk], b.data[b.readPtr:b.readPtr+chunk])
		b.readPtr = (b.readPtr + chunk) % n
		copied += chunk
	}
	return copied
}

// Write copies up to len(src) bytes starting at writePtr, wrapping once if
// needed. It never overwrites unread data and returns the number of bytes
// actually written, which is 0 if the buffer is full.
func (b *Buffer) Write(src []byte) int {
	avail := b.AvailableWrite()
	if avail == 0 || len(src) == 0 {
		return 0
	}
	want := len(src)
	if want > avail {
		want = avail
	}

	n := len(b.data)
	copied := 0
	for copied < want {
		chunk := want - copied
		if span := n - b.writePtr; chunk > span {
			chunk = span
		}
		copy(b.data[b.writePtr:b.writePtr+chunk], src[copied:copied+chunk])
		b.writePtr = (b.writePtr + chunk) % n
		copied += chunk
	}
	return copied
}
