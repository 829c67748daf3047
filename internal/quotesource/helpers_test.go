package quotesource

import (
	"encoding/json"
	"testing"

	"github.com/rishav/goldmine/internal/transport"
	"github.com/rishav/goldmine/internal/wire"
)

// testClientConn is a minimal hand-rolled protocol client used only by
// this package's tests to exercise Session/Server control handling
// without pulling in the full Client reconnect loop.
type testClientConn struct {
	proto *wire.Protocol
}

func newTestClientConn(t *testing.T, line transport.Line) *testClientConn {
	t.Helper()
	return &testClientConn{proto: wire.NewProtocol(line)}
}

func (c *testClientConn) startStream(tickers []string, manual bool) error {
	payload, _ := json.Marshal(controlRequest{Command: "start-stream", Tickers: tickers, ManualMode: manual})
	if err := c.proto.Send(wire.NewControl(payload)); err != nil {
		return err
	}
	msg, err := c.proto.Read()
	if err != nil {
		return err
	}
	var resp resultResponse
	if err := json.Unmarshal(msg.Frame(1), &resp); err != nil {
		return err
	}
	if resp.Result != "success" {
		return &controlError{reason: resp.Reason}
	}
	return nil
}

type controlError struct{ reason string }

func (e *controlError) Error() string { return e.reason }

func wireTypeOf(msg wire.Message) (string, bool) {
	typ, ok := wire.TypeOf(msg)
	if !ok {
		return "", false
	}
	switch typ {
	case wire.Control:
		return "Control", true
	case wire.Data:
		return "Data", true
	case wire.Service:
		return "Service", true
	case wire.Event:
		return "Event", true
	default:
		return "", false
	}
}
