package bqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteThenRead(t *testing.T) {
	q := New(64)
	n, err := q.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	out := make([]byte, 5)
	n, err = q.Read(out)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(out))
}

func TestReadTimeoutReturnsZero(t *testing.T) {
	q := New(64)
	out := make([]byte, 4)
	n, err := q.ReadTimeout(out, 30*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestReadBlocksUntilWrite(t *testing.T) {
	q := New(64)
	done := make(chan struct{})
	go func() {
		out := make([]byte, 3)
		n, err := q.Read(out)
		require.NoError(t, err)
		require.Equal(t, 3, n)
		require.Equal(t, "abc", string(out))
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	_, err := q.Write([]byte("abc"))
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read never unblocked")
	}
}

func TestDisconnectWakesEmptyReader(t *testing.T) {
	q := New(64)
	errCh := make(chan error, 1)
	go func() {
		out := make([]byte, 3)
		_, err := q.Read(out)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	q.SetConnected(false)

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrConnectionLost)
	case <-time.After(time.Second):
		t.Fatal("reader never woke on disconnect")
	}
}

func TestDisconnectWakesFullWriter(t *testing.T) {
	q := New(4) // usable capacity 3
	_, err := q.Write([]byte{1, 2, 3})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Write([]byte{4})
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	q.SetConnected(false)

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrConnectionLost)
	case <-time.After(time.Second):
		t.Fatal("writer never woke on disconnect")
	}
}

func TestOversizeWriteFailsImmediately(t *testing.T) {
	q := New(4) // usable capacity 3
	n, err := q.Write([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
