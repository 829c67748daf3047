package wire

import (
	"encoding/binary"
	"errors"

	"github.com/rishav/goldmine/internal/transport"
)

// ErrTimeout is returned by Protocol.Read when the underlying line's
// configured ReceiveTimeout elapses before any byte of a new message has
// arrived. It is not raised once a message is partway through being
// read: a timeout after the frame count has already started arriving
// means the peer is mid-write, so Read keeps retrying until either more
// bytes show up or the line reports ErrConnectionLost.
var ErrTimeout = errors.New("wire: read timed out")

// Protocol wraps a transport.Line with the length-prefixed framing from
// message.go, grounded on original_source/io/message.cpp's
// MessageProtocol::send/receive loop: every Send/Read fully drains or
// fills its buffer before returning, re-issuing the underlying Line
// call across any number of short reads/writes.
type Protocol struct {
	line transport.Line
}

// NewProtocol wraps line in a Protocol.
func NewProtocol(line transport.Line) *Protocol {
	return &Protocol{line: line}
}

// Send serializes msg and writes it to the line in full, looping over
// short writes and Line-reported send timeouts.
func (p *Protocol) Send(msg Message) error {
	return p.writeFull(msg.Serialize())
}

func (p *Protocol) writeFull(buf []byte) error {
	off := 0
	for off < len(buf) {
		n, err := p.line.Write(buf[off:])
		if err != nil {
			return err
		}
		off += n
	}
	return nil
}

// Read blocks until one complete Message has arrived, returning
// ErrTimeout if the line's ReceiveTimeout elapses before any frame-count
// bytes show up.
func (p *Protocol) Read() (Message, error) {
	countBuf := make([]byte, 4)
	if err := p.readExact(countBuf); err != nil {
		return Message{}, err
	}
	count := binary.LittleEndian.Uint32(countBuf)

	msg := Message{Frames: make([]Frame, 0, count)}
	for i := uint32(0); i < count; i++ {
		lenBuf := make([]byte, 4)
		if err := p.readExactContinuation(lenBuf); err != nil {
			return Message{}, err
		}
		flen := binary.LittleEndian.Uint32(lenBuf)

		frame := make(Frame, flen)
		if flen > 0 {
			if err := p.readExactContinuation(frame); err != nil {
				return Message{}, err
			}
		}
		msg.Frames = append(msg.Frames, frame)
	}
	return msg, nil
}

// readExact fills buf, treating a (0, nil) result at offset 0 as
// ErrTimeout since nothing about this message has arrived yet.
func (p *Protocol) readExact(buf []byte) error {
	off := 0
	for off < len(buf) {
		n, err := p.line.Read(buf[off:])
		if err != nil {
			return err
		}
		if n == 0 {
			if off == 0 {
				return ErrTimeout
			}
			continue
		}
		off += n
	}
	return nil
}

// readExactContinuation is readExact for frames after the first: the
// message has already started, so a (0, nil) mid-read is a transient
// line timeout to retry rather than ErrTimeout.
func (p *Protocol) readExactContinuation(buf []byte) error {
	off := 0
	for off < len(buf) {
		n, err := p.line.Read(buf[off:])
		if err != nil {
			return err
		}
		off += n
	}
	return nil
}
