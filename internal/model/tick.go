// Package model defines the gateway's wire-facing domain types: Tick,
// Order, Trade, the order state machine, and the subscription filter,
// grounded on the teacher's internal/orders/types.go field ordering and
// Now()/String() idioms, adapted to spec.md §3's shapes.
package model

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/rishav/goldmine/internal/fixedpoint"
)

// TickByteSize is sizeof the raw Tick layout on the wire:
// timestamp(8) useconds(4) packet_type(1) datatype(1) _pad(2)
// value_integer(8) value_fractional(4) volume(4) = 32 bytes.
const TickByteSize = 32

// PacketType values (spec.md §6).
const (
	PacketTypeTick uint8 = 1
)

// DataType values for Tick.Datatype (spec.md §3: "1 = price, others reserved").
const (
	DataTypePrice uint8 = 1
)

// Tick is the fixed-size, immutable market-data record transmitted as
// raw little-endian bytes for backwards compatibility with existing
// readers (spec.md §3). Field order here must not change: it mirrors
// the wire layout exactly, with no reordering or repacking.
type Tick struct {
	Timestamp         uint64
	Useconds          uint32
	PacketType        uint8
	Datatype          uint8
	ValueInteger      int64
	ValueFractional   int32
	Volume            int32
}

// NewTick builds a Tick for value at the current time.
func NewTick(value fixedpoint.Decimal, volume int32) Tick {
	now := time.Now().UTC()
	return Tick{
		Timestamp:       uint64(now.Unix()),
		Useconds:        uint32(now.Nanosecond() / 1000),
		PacketType:      PacketTypeTick,
		Datatype:        DataTypePrice,
		ValueInteger:    value.Integer,
		ValueFractional: int32(value.Fractional),
		Volume:          volume,
	}
}

// Value reconstructs the Decimal price carried by the tick.
func (t Tick) Value() fixedpoint.Decimal {
	return fixedpoint.Decimal{Integer: t.ValueInteger, Fractional: int64(t.ValueFractional)}
}

// Encode writes t's raw little-endian byte layout, matching
// original_source's wire-compatible packed struct exactly.
func (t Tick) Encode() []byte {
	buf := make([]byte, TickByteSize)
	binary.LittleEndian.PutUint64(buf[0:8], t.Timestamp)
	binary.LittleEndian.PutUint32(buf[8:12], t.Useconds)
	buf[12] = t.PacketType
	buf[13] = t.Datatype
	// buf[14:16] is the _pad field, left zero.
	binary.LittleEndian.PutUint64(buf[16:24], uint64(t.ValueInteger))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(t.ValueFractional))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(t.Volume))
	return buf
}

// ErrShortTickBuffer is returned by DecodeTick when buf is smaller than
// TickByteSize — a receiver must reject the frame rather than guess.
var ErrShortTickBuffer = errors.New("model: tick buffer shorter than wire size")

// DecodeTick parses a raw Tick out of buf. buf must be at least
// TickByteSize bytes; any excess is ignored.
func DecodeTick(buf []byte) (Tick, error) {
	if len(buf) < TickByteSize {
		return Tick{}, ErrShortTickBuffer
	}
	var t Tick
	t.Timestamp = binary.LittleEndian.Uint64(buf[0:8])
	t.Useconds = binary.LittleEndian.Uint32(buf[8:12])
	t.PacketType = buf[12]
	t.Datatype = buf[13]
	t.ValueInteger = int64(binary.LittleEndian.Uint64(buf[16:24]))
	t.ValueFractional = int32(binary.LittleEndian.Uint32(buf[24:28]))
	t.Volume = int32(binary.LittleEndian.Uint32(buf[28:32]))
	return t, nil
}

// Time returns the tick's timestamp as a time.Time.
func (t Tick) Time() time.Time {
	return time.Unix(int64(t.Timestamp), int64(t.Useconds)*1000).UTC()
}
