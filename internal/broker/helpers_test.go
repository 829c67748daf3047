package broker

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rishav/goldmine/internal/transport"
	"github.com/rishav/goldmine/internal/wire"
)

// testSessionConn drives a raw Line the way a hand-rolled BrokerClient
// would, without going through the package's own Client — so tests
// exercise Session/Server in isolation.
type testSessionConn struct {
	t     *testing.T
	proto *wire.Protocol
}

func newTestSessionConn(t *testing.T, line transport.Line) *testSessionConn {
	t.Helper()
	return &testSessionConn{t: t, proto: wire.NewProtocol(line)}
}

func (c *testSessionConn) getIdentity() error {
	payload, _ := json.Marshal(controlEnvelope{Command: "get-identity"})
	if err := c.proto.Send(wire.NewControl(payload)); err != nil {
		return err
	}
	_, err := c.proto.Read()
	return err
}

// submitOrder sends an order request and returns only a send-level
// error. The server's response (a bare result for a rejected order, or
// order-update/trade frames interleaved with a trailing result for an
// accepted one) is left for the caller to read explicitly.
func (c *testSessionConn) submitOrder(id uint64, account, security, typ, operation string, quantity int64, price float64, hasPrice bool) error {
	var payload []byte
	if hasPrice {
		payload, _ = json.Marshal(struct {
			Command   string  `json:"command"`
			ID        uint64  `json:"id"`
			Account   string  `json:"account"`
			Security  string  `json:"security"`
			Type      string  `json:"type"`
			Operation string  `json:"operation"`
			Quantity  int64   `json:"quantity"`
			Price     float64 `json:"price"`
		}{"order", id, account, security, typ, operation, quantity, price})
	} else {
		payload, _ = json.Marshal(struct {
			Command   string `json:"command"`
			ID        uint64 `json:"id"`
			Account   string `json:"account"`
			Security  string `json:"security"`
			Type      string `json:"type"`
			Operation string `json:"operation"`
			Quantity  int64  `json:"quantity"`
		}{"order", id, account, security, typ, operation, quantity})
	}
	return c.proto.Send(wire.NewControl(payload))
}

// readResult reads one frame and interprets it as a resultResponse,
// returning an error if Result is "error".
func (c *testSessionConn) readResult() error {
	c.t.Helper()
	msg, err := c.proto.Read()
	if err != nil {
		return err
	}
	var res resultResponse
	if err := json.Unmarshal(msg.Frame(1), &res); err != nil {
		return err
	}
	if res.Result == "error" {
		return fmt.Errorf("broker: %s", res.Reason)
	}
	return nil
}

func (c *testSessionConn) cancelOrderOnly(id uint64, account string) error {
	payload, _ := json.Marshal(cancelOrderRequest{Command: "cancel-order", ID: id, Account: account})
	if err := c.proto.Send(wire.NewControl(payload)); err != nil {
		return err
	}
	return c.readResult()
}

func (c *testSessionConn) readOrderUpdate() orderUpdateBody {
	c.t.Helper()
	msg, err := c.proto.Read()
	if err != nil {
		c.t.Fatalf("read order update: %v", err)
	}
	var u orderUpdate
	if err := json.Unmarshal(msg.Frame(1), &u); err != nil {
		c.t.Fatalf("decode order update: %v", err)
	}
	return u.Order
}

func (c *testSessionConn) readTrade() tradePayload {
	c.t.Helper()
	msg, err := c.proto.Read()
	if err != nil {
		c.t.Fatalf("read trade: %v", err)
	}
	var p tradePayload
	if err := json.Unmarshal(msg.Frame(1), &p); err != nil {
		c.t.Fatalf("decode trade: %v", err)
	}
	return p
}
