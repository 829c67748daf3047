package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInProcDialWithoutListenerFails(t *testing.T) {
	f := NewInProcFactory()
	_, err := f.Dial("nobody-here")
	require.Error(t, err)
}

func TestInProcRoundTrip(t *testing.T) {
	f := NewInProcFactory()
	acc, err := f.Listen("svc-a")
	require.NoError(t, err)
	defer acc.Close()

	clientDone := make(chan error, 1)
	go func() {
		client, err := f.Dial("svc-a")
		if err != nil {
			clientDone <- err
			return
		}
		defer client.Close()
		_, err = client.Write([]byte("ping"))
		clientDone <- err
	}()

	line, err := acc.WaitConnection(time.Second)
	require.NoError(t, err)
	require.NotNil(t, line)
	defer line.Close()

	buf := make([]byte, 4)
	n, err := line.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))
	require.NoError(t, <-clientDone)
}

func TestInProcAcceptorTimesOutWithNoDialer(t *testing.T) {
	f := NewInProcFactory()
	acc, err := f.Listen("svc-b")
	require.NoError(t, err)
	defer acc.Close()

	line, err := acc.WaitConnection(20 * time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, line)
}

func TestInProcCloseUnblocksReader(t *testing.T) {
	f := NewInProcFactory()
	acc, err := f.Listen("svc-c")
	require.NoError(t, err)
	defer acc.Close()

	go func() {
		client, err := f.Dial("svc-c")
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
		client.Close()
	}()

	line, err := acc.WaitConnection(time.Second)
	require.NoError(t, err)

	buf := make([]byte, 16)
	_, err = line.Read(buf)
	require.ErrorIs(t, err, ErrConnectionLost)
}
