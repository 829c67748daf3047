package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewControlRoundTrip(t *testing.T) {
	msg := NewControl([]byte(`{"command":"request-capabilities"}`))
	typ, ok := TypeOf(msg)
	require.True(t, ok)
	require.Equal(t, Control, typ)
	require.Equal(t, `{"command":"request-capabilities"}`, string(msg.Frame(1)))
}

func TestNewDataCarriesTickerAndTick(t *testing.T) {
	msg := NewData("FOO", []byte{1, 2, 3, 4})
	typ, ok := TypeOf(msg)
	require.True(t, ok)
	require.Equal(t, Data, typ)
	require.Equal(t, "FOO", string(msg.Frame(1)))
	require.Equal(t, []byte{1, 2, 3, 4}, []byte(msg.Frame(2)))
}

func TestNewServiceSubType(t *testing.T) {
	msg := NewService(NextTick)
	typ, ok := TypeOf(msg)
	require.True(t, ok)
	require.Equal(t, Service, typ)

	sub, ok := ServiceSubTypeOf(msg)
	require.True(t, ok)
	require.Equal(t, NextTick, sub)
}

func TestTypeOfEmptyMessageFails(t *testing.T) {
	_, ok := TypeOf(Message{})
	require.False(t, ok)
}
