package risk

import (
	"testing"

	"github.com/rishav/goldmine/internal/refbroker/matching"
	"github.com/rishav/goldmine/internal/refbroker/orderbook"
)

func order(accountID, symbol string, side orderbook.Side, price, qty int64) *matching.Order {
	return &matching.Order{
		Order:     orderbook.Order{Price: price, Quantity: qty},
		Symbol:    symbol,
		AccountID: accountID,
		Side:      side,
		Type:      matching.Limit,
	}
}

func TestCheckRejectsOversizedOrder(t *testing.T) {
	c := NewChecker(Config{MaxOrderSize: 10, MaxOrderValue: 1 << 40, MaxPositionSize: 1 << 40, PriceBandPercent: 1})
	ok, reason := c.Check(order("acct", "AAPL", orderbook.Bid, 100, 11))
	if ok {
		t.Fatal("expected rejection for order exceeding max size")
	}
	if reason == "" {
		t.Fatal("expected a rejection reason")
	}
}

func TestCheckRejectsOversizedValue(t *testing.T) {
	c := NewChecker(Config{MaxOrderSize: 1 << 40, MaxOrderValue: 1000, MaxPositionSize: 1 << 40, PriceBandPercent: 1})
	ok, _ := c.Check(order("acct", "AAPL", orderbook.Bid, 100, 100))
	if ok {
		t.Fatal("expected rejection: order value 10000 exceeds max 1000")
	}
}

func TestCheckEnforcesPriceBandAfterReferenceIsSet(t *testing.T) {
	c := NewChecker(Config{MaxOrderSize: 1 << 40, MaxOrderValue: 1 << 40, MaxPositionSize: 1 << 40, PriceBandPercent: 0.10})
	c.ApplyFill("someone-else", "AAPL", orderbook.Bid, 1, 10000)

	if ok, _ := c.Check(order("acct", "AAPL", orderbook.Bid, 10500, 1)); !ok {
		t.Fatal("10500 should be within a 10% band of 10000")
	}
	if ok, _ := c.Check(order("acct", "AAPL", orderbook.Bid, 20000, 1)); ok {
		t.Fatal("20000 should be rejected: far outside the price band")
	}
}

func TestCheckEnforcesPositionLimit(t *testing.T) {
	c := NewChecker(Config{MaxOrderSize: 1 << 40, MaxOrderValue: 1 << 40, MaxPositionSize: 100, PriceBandPercent: 1})
	c.ApplyFill("acct", "AAPL", orderbook.Bid, 90, 10000)

	if ok, _ := c.Check(order("acct", "AAPL", orderbook.Bid, 10000, 5)); !ok {
		t.Fatal("projected position of 95 should be within the limit of 100")
	}
	if ok, _ := c.Check(order("acct", "AAPL", orderbook.Bid, 10000, 20)); ok {
		t.Fatal("projected position of 110 should exceed the limit of 100")
	}
}

func TestApplyFillNetsPositionBySide(t *testing.T) {
	c := NewChecker(DefaultConfig())
	c.ApplyFill("acct", "AAPL", orderbook.Bid, 10, 10000)
	c.ApplyFill("acct", "AAPL", orderbook.Ask, 4, 10100)

	if got := c.Position("acct", "AAPL"); got != 6 {
		t.Fatalf("Position = %d, want 6", got)
	}
	if got := c.ReferencePrice("AAPL"); got != 10100 {
		t.Fatalf("ReferencePrice = %d, want 10100 (last fill)", got)
	}
}

func TestSnapshotOmitsZeroPositions(t *testing.T) {
	c := NewChecker(DefaultConfig())
	c.ApplyFill("acct", "AAPL", orderbook.Bid, 10, 10000)
	c.ApplyFill("acct", "AAPL", orderbook.Ask, 10, 10000)
	c.ApplyFill("acct", "MSFT", orderbook.Bid, 3, 30000)

	rows := c.Snapshot()
	if len(rows) != 1 {
		t.Fatalf("Snapshot returned %d rows, want 1 (AAPL net to zero)", len(rows))
	}
	if rows[0].Symbol != "MSFT" || rows[0].Quantity != 3 {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}
