package ringbuf

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rishav/goldmine/internal/refbroker/matching"
	"github.com/rishav/goldmine/internal/refbroker/orderbook"
)

func newTestProcessor(t *testing.T) (*Sequencer, *matching.Engine) {
	t.Helper()
	eng := matching.NewEngine()
	eng.AddSymbol("AAPL")
	rb := New(16)
	seq := NewSequencer(rb)
	proc := NewProcessor(rb, eng, zap.NewNop())
	proc.Start()
	t.Cleanup(proc.Stop)
	return seq, eng
}

func awaitResponse(t *testing.T, ch chan *Response) *Response {
	t.Helper()
	select {
	case resp := <-ch:
		return resp
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for processor response")
		return nil
	}
}

func TestSubmitNewOrderRoutesThroughProcessorToEngine(t *testing.T) {
	seq, eng := newTestProcessor(t)

	order := &matching.Order{
		Order:     orderbook.Order{ID: 1, Price: 10000, Quantity: 5},
		Symbol:    "AAPL",
		AccountID: "acct",
		Side:      matching.Buy,
		Type:      matching.Limit,
	}
	ch, err := seq.Submit(&Request{Kind: NewOrder, Order: order})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	resp := awaitResponse(t, ch)
	if resp.Err != nil {
		t.Fatalf("unexpected error: %v", resp.Err)
	}
	if !resp.Result.Accepted {
		t.Fatalf("expected order to be accepted: %+v", resp.Result)
	}
	if _, ok := eng.GetOrder(1); !ok {
		t.Fatal("expected order 1 to be resting in the engine")
	}
}

func TestSubmitCancelOrderRoutesThroughProcessor(t *testing.T) {
	seq, _ := newTestProcessor(t)

	order := &matching.Order{
		Order:     orderbook.Order{ID: 2, Price: 10000, Quantity: 5},
		Symbol:    "AAPL",
		AccountID: "acct",
		Side:      matching.Buy,
		Type:      matching.Limit,
	}
	ch, err := seq.Submit(&Request{Kind: NewOrder, Order: order})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	awaitResponse(t, ch)

	cancelCh, err := seq.Submit(&Request{Kind: CancelOrder, Symbol: "AAPL", Side: matching.Buy, OrderID: 2})
	if err != nil {
		t.Fatalf("Submit cancel: %v", err)
	}
	resp := awaitResponse(t, cancelCh)
	if resp.Err != nil {
		t.Fatalf("unexpected cancel error: %v", resp.Err)
	}
	if resp.Order.Status != matching.StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", resp.Order.Status)
	}
}

func TestSubmitCancelUnknownOrderReturnsError(t *testing.T) {
	seq, _ := newTestProcessor(t)

	ch, err := seq.Submit(&Request{Kind: CancelOrder, Symbol: "AAPL", Side: matching.Buy, OrderID: 999})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	resp := awaitResponse(t, ch)
	if resp.Err == nil {
		t.Fatal("expected an error cancelling an order that was never submitted")
	}
}

func TestNewPanicsOnNonPowerOfTwoSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected New to panic on a non-power-of-2 size")
		}
	}()
	New(10)
}
