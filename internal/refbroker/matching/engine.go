package matching

import (
	"fmt"
	"sync/atomic"

	"github.com/rishav/goldmine/internal/refbroker/orderbook"
)

// Engine is the single-threaded matching core for one or more symbols.
// Callers must serialize all ProcessOrder/CancelOrder calls themselves,
// across every symbol (refbroker's Adapter does this with a single worker
// goroutine fed by a ring buffer); the Engine itself holds no lock.
type Engine struct {
	books   map[string]*orderbook.Book
	resting map[uint64]*Order // orders currently sitting in a book, by ID
	tradeID uint64
	seq     uint64
}

func NewEngine() *Engine {
	return &Engine{
		books:   make(map[string]*orderbook.Book),
		resting: make(map[uint64]*Order),
	}
}

// AddSymbol registers symbol as tradable if it isn't already.
func (e *Engine) AddSymbol(symbol string) {
	if _, ok := e.books[symbol]; !ok {
		e.books[symbol] = orderbook.NewBook(symbol)
	}
}

func (e *Engine) Book(symbol string) *orderbook.Book {
	return e.books[symbol]
}

// GetOrder returns a currently-resting order by ID.
func (e *Engine) GetOrder(orderID uint64) (*Order, bool) {
	o, ok := e.resting[orderID]
	return o, ok
}

func (e *Engine) nextTradeID() uint64 { return atomic.AddUint64(&e.tradeID, 1) }
func (e *Engine) nextSeq() uint64     { return atomic.AddUint64(&e.seq, 1) }

// ProcessOrder validates order, matches it against the resting book for
// its symbol, and rests any remainder (for Limit orders only).
func (e *Engine) ProcessOrder(order *Order) *ExecutionResult {
	result := &ExecutionResult{Order: order, Fills: make([]Fill, 0)}

	b := e.books[order.Symbol]
	if b == nil {
		result.RejectReason = fmt.Sprintf("unknown symbol: %s", order.Symbol)
		order.Status = StatusRejected
		return result
	}
	if order.Quantity <= 0 {
		result.RejectReason = "quantity must be positive"
		order.Status = StatusRejected
		return result
	}
	if order.Type == Limit && order.Price <= 0 {
		result.RejectReason = "limit order must have positive price"
		order.Status = StatusRejected
		return result
	}

	order.SequenceNum = e.nextSeq()
	if order.Timestamp == 0 {
		order.Timestamp = nowNanos()
	}
	order.Status = StatusNew
	result.Accepted = true

	result.Fills = e.matchOrder(order, b)

	switch {
	case order.IsFilled():
		order.Status = StatusFilled
	case order.FilledQty > 0:
		order.Status = StatusPartiallyFilled
	}

	remaining := order.Remaining()
	if remaining <= 0 {
		return result
	}

	switch order.Type {
	case Market:
		order.Status = StatusCancelled
		result.RejectReason = "insufficient liquidity"
	case IOC:
		order.Status = StatusCancelled
	case FOK:
		order.Status = StatusCancelled
		result.RejectReason = "could not fill entire quantity"
	case Limit:
		if err := b.Add(order.Side, &order.Order); err != nil {
			order.Status = StatusRejected
			result.RejectReason = err.Error()
			return result
		}
		e.resting[order.ID] = order
		result.RestingQty = remaining
	}
	return result
}

// matchOrder walks the opposing side's price levels in price-time
// priority, filling order against resting orders until it is exhausted,
// the opposing book runs out, or price protection stops it.
func (e *Engine) matchOrder(order *Order, b *orderbook.Book) []Fill {
	var fills []Fill

	if order.Type == FOK && !e.canFillEntirely(order, b) {
		return fills
	}

	opposingSide := orderbook.Ask
	if order.Side == orderbook.Ask {
		opposingSide = orderbook.Bid
	}

	priceAcceptable := func(bookPrice int64) bool {
		if order.Type == Market {
			return true
		}
		if order.Side == orderbook.Bid {
			return bookPrice <= order.Price
		}
		return bookPrice >= order.Price
	}
	bestLevel := func() *orderbook.PriceLevel {
		if opposingSide == orderbook.Ask {
			return b.BestAsk()
		}
		return b.BestBid()
	}

	for order.Remaining() > 0 {
		level := bestLevel()
		if level == nil || !priceAcceptable(level.Price) {
			break
		}

		node := level.Head()
		for node != nil && order.Remaining() > 0 {
			maker := node.Order
			makerOrder := e.resting[maker.ID]
			next := node.Next()

			fillQty := minInt64(order.Remaining(), maker.Remaining())
			fills = append(fills, Fill{
				TradeID:        e.nextTradeID(),
				MakerOrderID:   maker.ID,
				TakerOrderID:   order.ID,
				Price:          level.Price,
				Quantity:       fillQty,
				Timestamp:      nowNanos(),
				Symbol:         order.Symbol,
				MakerAccountID: makerOrder.AccountID,
				TakerAccountID: order.AccountID,
				TakerSide:      order.Side,
			})

			order.FilledQty += fillQty
			maker.FilledQty += fillQty
			level.UpdateQuantity(-fillQty)
			makerOrder.Status = StatusPartiallyFilled
			if maker.Remaining() <= 0 {
				makerOrder.Status = StatusFilled
				b.Cancel(opposingSide, maker.ID)
				delete(e.resting, maker.ID)
			}
			node = next
		}

		if level.IsEmpty() {
			break
		}
	}

	return fills
}

// canFillEntirely reports whether order's full quantity is available at
// acceptable prices, without mutating the orderbook. Used for FOK orders.
func (e *Engine) canFillEntirely(order *Order, b *orderbook.Book) bool {
	remaining := order.Quantity
	side := orderbook.Ask
	if order.Side == orderbook.Ask {
		side = orderbook.Bid
	}

	priceOK := func(p int64) bool {
		if order.Type == Market {
			return true
		}
		if order.Side == orderbook.Bid {
			return p <= order.Price
		}
		return p >= order.Price
	}

	for _, level := range b.Depth(side, 0) {
		if !priceOK(level.Price) {
			break
		}
		if level.TotalQty >= remaining {
			remaining = 0
			break
		}
		remaining -= level.TotalQty
	}
	return remaining <= 0
}

// CancelOrder removes a resting order from symbol's orderbook.
func (e *Engine) CancelOrder(symbol string, side orderbook.Side, orderID uint64) (*Order, error) {
	b := e.books[symbol]
	if b == nil {
		return nil, fmt.Errorf("unknown symbol: %s", symbol)
	}
	if b.Cancel(side, orderID) == nil {
		return nil, fmt.Errorf("order %d not found", orderID)
	}
	order := e.resting[orderID]
	order.Status = StatusCancelled
	delete(e.resting, orderID)
	return order, nil
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
