// Package matching is the reference broker adapter's self-contained
// price-time-priority matching core: single-threaded per symbol, fed one
// order at a time by refbroker's Adapter implementation, with its own
// order/fill vocabulary independent of the gateway-wide model package.
package matching

import (
	"fmt"
	"time"

	"github.com/rishav/goldmine/internal/refbroker/orderbook"
)

// OrderType mirrors the execution semantics a resting book actually
// needs to support, which is a superset of what the gateway's wire
// protocol exposes (Market/Limit only): IOC and FOK exist here so the
// engine can be driven directly in tests without a gateway in front of it.
type OrderType int

const (
	Limit OrderType = iota
	Market
	IOC
	FOK
)

func (t OrderType) String() string {
	switch t {
	case Limit:
		return "LIMIT"
	case Market:
		return "MARKET"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	default:
		return "UNKNOWN"
	}
}

// Status is the lifecycle state of an Order within the engine.
type Status int

const (
	StatusNew Status = iota
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case StatusFilled:
		return "FILLED"
	case StatusCancelled:
		return "CANCELLED"
	case StatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Buy and Sell name the book sides from an order's point of view.
const (
	Buy  = orderbook.Bid
	Sell = orderbook.Ask
)

// Order is the engine's own order record. Price is in cents; Quantity,
// FilledQty inherited from orderbook.Order give O(1) Remaining().
type Order struct {
	orderbook.Order
	Symbol      string
	AccountID   string
	Side        orderbook.Side
	Type        OrderType
	Status      Status
	Timestamp   int64
	SequenceNum uint64
}

func (o *Order) IsFilled() bool { return o.FilledQty >= o.Quantity }
func (o *Order) IsActive() bool { return o.Status == StatusNew || o.Status == StatusPartiallyFilled }

// Fill is one execution leg: a maker (resting) order matched against a
// taker (incoming) order for Quantity shares at Price.
type Fill struct {
	TradeID        uint64
	MakerOrderID   uint64
	TakerOrderID   uint64
	Price          int64
	Quantity       int64
	Timestamp      int64
	Symbol         string
	MakerAccountID string
	TakerAccountID string
	TakerSide      orderbook.Side
}

// ExecutionResult is what ProcessOrder returns: the (mutated) order plus
// every Fill it generated.
type ExecutionResult struct {
	Order        *Order
	Fills        []Fill
	Accepted     bool
	RejectReason string
	RestingQty   int64
}

// FormatPrice renders cents as a dollar string.
func FormatPrice(cents int64) string {
	dollars := cents / 100
	rem := cents % 100
	if rem < 0 {
		rem = -rem
	}
	return fmt.Sprintf("$%d.%02d", dollars, rem)
}

func nowNanos() int64 { return time.Now().UnixNano() }
