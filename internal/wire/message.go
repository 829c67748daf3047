// Package wire implements the length-prefixed multi-frame message
// protocol that rides on top of internal/transport lines.
//
// Wire format, little-endian throughout (grounded byte-for-byte on
// original_source/io/message.cpp's Message::writeMessage/readMessage):
//
//	uint32  frame_count
//	repeat frame_count times:
//	  uint32  frame_length
//	  bytes   frame_length
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Frame is an opaque byte run within a Message.
type Frame []byte

// Message is an ordered sequence of frames.
type Message struct {
	Frames []Frame
}

// New builds a Message from the given frame payloads.
func New(frames ...[]byte) Message {
	m := Message{Frames: make([]Frame, len(frames))}
	for i, f := range frames {
		m.Frames[i] = Frame(f)
	}
	return m
}

// Frame returns frame i, or nil if it doesn't exist.
func (m Message) Frame(i int) Frame {
	if i < 0 || i >= len(m.Frames) {
		return nil
	}
	return m.Frames[i]
}

// Size returns the number of frames.
func (m Message) Size() int {
	return len(m.Frames)
}

// ByteSize returns the exact serialized size: 4 + sum(4 + len(frame)).
func (m Message) ByteSize() int {
	total := 4
	for _, f := range m.Frames {
		total += 4 + len(f)
	}
	return total
}

// Serialize writes the message into one contiguous buffer, suitable for a
// single transport write.
func (m Message) Serialize() []byte {
	buf := make([]byte, m.ByteSize())
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(m.Frames)))
	off := 4
	for _, f := range m.Frames {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(f)))
		off += 4
		copy(buf[off:off+len(f)], f)
		off += len(f)
	}
	return buf
}

// ErrTruncated is returned by Deserialize when the buffer ends before the
// declared frame count/lengths are satisfied.
var ErrTruncated = errors.New("wire: truncated message buffer")

// Deserialize parses a Message out of a complete in-memory buffer (used by
// tests and by Protocol.Read once all the bytes for one message have been
// assembled).
func Deserialize(buf []byte) (Message, error) {
	if len(buf) < 4 {
		return Message{}, ErrTruncated
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	off := 4

	msg := Message{Frames: make([]Frame, 0, count)}
	for i := uint32(0); i < count; i++ {
		if off+4 > len(buf) {
			return Message{}, ErrTruncated
		}
		flen := int(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		if off+flen > len(buf) {
			return Message{}, ErrTruncated
		}
		frame := make(Frame, flen)
		copy(frame, buf[off:off+flen])
		off += flen
		msg.Frames = append(msg.Frames, frame)
	}
	return msg, nil
}

func (m Message) String() string {
	return fmt.Sprintf("Message{frames=%d, bytes=%d}", len(m.Frames), m.ByteSize())
}
