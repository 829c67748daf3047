package matching

import (
	"testing"

	"github.com/rishav/goldmine/internal/refbroker/orderbook"
)

func newTestEngine(symbol string) *Engine {
	e := NewEngine()
	e.AddSymbol(symbol)
	return e
}

func limitOrder(id uint64, symbol string, side orderbook.Side, price, qty int64) *Order {
	return &Order{
		Order:     orderbook.Order{ID: id, Price: price, Quantity: qty},
		Symbol:    symbol,
		AccountID: "acct",
		Side:      side,
		Type:      Limit,
	}
}

func TestProcessOrderRestsWhenNoCross(t *testing.T) {
	e := newTestEngine("AAPL")
	res := e.ProcessOrder(limitOrder(1, "AAPL", Buy, 10000, 5))

	if !res.Accepted {
		t.Fatalf("expected order to be accepted, reason=%q", res.RejectReason)
	}
	if len(res.Fills) != 0 {
		t.Fatalf("expected no fills, got %d", len(res.Fills))
	}
	if res.Order.Status != StatusNew {
		t.Fatalf("status = %s, want NEW", res.Order.Status)
	}
	if _, ok := e.GetOrder(1); !ok {
		t.Fatal("expected order 1 to be resting")
	}
}

func TestProcessOrderCrossesRestingOrder(t *testing.T) {
	e := newTestEngine("AAPL")
	e.ProcessOrder(limitOrder(1, "AAPL", Sell, 10000, 10))

	res := e.ProcessOrder(limitOrder(2, "AAPL", Buy, 10000, 4))
	if len(res.Fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(res.Fills))
	}
	fill := res.Fills[0]
	if fill.MakerOrderID != 1 || fill.TakerOrderID != 2 || fill.Quantity != 4 || fill.Price != 10000 {
		t.Fatalf("unexpected fill: %+v", fill)
	}
	if res.Order.Status != StatusFilled {
		t.Fatalf("taker status = %s, want FILLED", res.Order.Status)
	}

	maker, ok := e.GetOrder(1)
	if !ok {
		t.Fatal("expected maker order 1 to still be resting (partially filled)")
	}
	if maker.Status != StatusPartiallyFilled || maker.Remaining() != 6 {
		t.Fatalf("maker = %+v, want PARTIALLY_FILLED with 6 remaining", maker)
	}
}

func TestProcessOrderFullyConsumesMakerAndRemovesFromBook(t *testing.T) {
	e := newTestEngine("AAPL")
	e.ProcessOrder(limitOrder(1, "AAPL", Sell, 10000, 5))
	res := e.ProcessOrder(limitOrder(2, "AAPL", Buy, 10000, 5))

	if len(res.Fills) != 1 || res.Fills[0].Quantity != 5 {
		t.Fatalf("unexpected fills: %+v", res.Fills)
	}
	if _, ok := e.GetOrder(1); ok {
		t.Fatal("fully-filled maker should no longer be resting")
	}
	if e.Book("AAPL").BestAsk() != nil {
		t.Fatal("expected empty ask side after full fill")
	}
}

func TestProcessOrderMarketCancelsUnfilledRemainder(t *testing.T) {
	e := newTestEngine("AAPL")
	e.ProcessOrder(limitOrder(1, "AAPL", Sell, 10000, 2))

	taker := limitOrder(2, "AAPL", Buy, 0, 10)
	taker.Type = Market
	res := e.ProcessOrder(taker)

	if res.Order.Status != StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED (insufficient liquidity)", res.Order.Status)
	}
	if res.Order.FilledQty != 2 {
		t.Fatalf("FilledQty = %d, want 2", res.Order.FilledQty)
	}
}

func TestProcessOrderFOKRejectsWhenNotFullyFillable(t *testing.T) {
	e := newTestEngine("AAPL")
	e.ProcessOrder(limitOrder(1, "AAPL", Sell, 10000, 2))

	taker := limitOrder(2, "AAPL", Buy, 10000, 10)
	taker.Type = FOK
	res := e.ProcessOrder(taker)

	if len(res.Fills) != 0 {
		t.Fatalf("expected no fills on a rejected FOK, got %d", len(res.Fills))
	}
	if res.Order.Status != StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", res.Order.Status)
	}
	if _, ok := e.GetOrder(1); !ok {
		t.Fatal("resting maker should be untouched by a failed FOK")
	}
}

func TestProcessOrderRejectsUnknownSymbol(t *testing.T) {
	e := NewEngine()
	res := e.ProcessOrder(limitOrder(1, "NOPE", Buy, 100, 1))
	if res.Accepted {
		t.Fatal("expected rejection for unregistered symbol")
	}
}

func TestCancelOrderRemovesRestingOrder(t *testing.T) {
	e := newTestEngine("AAPL")
	e.ProcessOrder(limitOrder(1, "AAPL", Buy, 10000, 5))

	cancelled, err := e.CancelOrder("AAPL", Buy, 1)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", cancelled.Status)
	}
	if _, ok := e.GetOrder(1); ok {
		t.Fatal("cancelled order should no longer be resting")
	}

	if _, err := e.CancelOrder("AAPL", Buy, 1); err == nil {
		t.Fatal("expected error cancelling an already-gone order")
	}
}
