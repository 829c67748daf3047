package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stubFactory struct{ scheme string }

func (s *stubFactory) Scheme() string                    { return s.scheme }
func (s *stubFactory) Dial(rest string) (Line, error)    { return nil, nil }
func (s *stubFactory) Listen(rest string) (Acceptor, error) { return nil, nil }

func TestRegisterFirstWriterWins(t *testing.T) {
	r := NewRegistry()
	first := &stubFactory{scheme: "tcp"}
	second := &stubFactory{scheme: "tcp"}
	r.Register(first)
	r.Register(second)
	require.Same(t, first, r.byScheme["tcp"])
}

func TestDialUnknownSchemeErrors(t *testing.T) {
	r := Default()
	_, err := r.Dial("carrier-pigeon://nowhere")
	require.Error(t, err)
}

func TestParseAddressRejectsMissingScheme(t *testing.T) {
	_, _, err := parseAddress("no-scheme-here")
	require.Error(t, err)
}

func TestParseAddressSplitsSchemeAndRest(t *testing.T) {
	scheme, rest, err := parseAddress("tcp://127.0.0.1:9000")
	require.NoError(t, err)
	require.Equal(t, "tcp", scheme)
	require.Equal(t, "127.0.0.1:9000", rest)
}

func TestDefaultRegistersAllThreeSchemes(t *testing.T) {
	r := Default()
	for _, scheme := range []string{"inproc", "local", "tcp"} {
		_, ok := r.byScheme[scheme]
		require.True(t, ok, "scheme %q missing from default registry", scheme)
	}
}
