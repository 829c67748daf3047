package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadAfterWritePreservesOrder(t *testing.T) {
	b := New(16)
	in := []byte("hello world")
	n := b.Write(in)
	require.Equal(t, len(in), n)

	out := make([]byte, len(in))
	got := b.Read(out)
	require.Equal(t, len(in), got)
	require.Equal(t, in, out)
}

func TestEmptyReadReturnsZero(t *testing.T) {
	b := New(8)
	out := make([]byte, 4)
	require.Equal(t, 0, b.Read(out))
}

func TestFullWriteReturnsZero(t *testing.T) {
	b := New(4) // usable capacity 3
	require.Equal(t, 3, b.Write([]byte{1, 2, 3, 4}))
	require.Equal(t, 0, b.Write([]byte{5}))
}

func TestWrapAroundPreservesValues(t *testing.T) {
	b := New(8) // usable capacity 7
	buf := make([]byte, 4)

	require.Equal(t, 4, b.Write([]byte{1, 2, 3, 4}))
	require.Equal(t, 4, b.Read(buf))
	require.Equal(t, []byte{1, 2, 3, 4}, buf)

	// writePtr sits at index 4 of 8 now; this write straddles the boundary
	require.Equal(t, 6, b.Write([]byte{5, 6, 7, 8, 9, 10}))
	out := make([]byte, 6)
	require.Equal(t, 6, b.Read(out))
	require.Equal(t, []byte{5, 6, 7, 8, 9, 10}, out)
}

func TestShortReadReturnsAvailable(t *testing.T) {
	b := New(8)
	b.Write([]byte{1, 2, 3})
	out := make([]byte, 10)
	require.Equal(t, 3, b.Read(out))
}
