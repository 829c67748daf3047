package orderbook

import "fmt"

// Side distinguishes the bid and ask sides of a Book.
type Side int

const (
	Bid Side = iota
	Ask
)

// Book is a single symbol's limit order book: two levelIndexes of
// PriceLevels (bids descending, asks ascending) plus an order-id index
// for O(1) cancel.
type Book struct {
	Symbol string
	bids   *levelIndex
	asks   *levelIndex
	byID   map[uint64]*Node
}

func NewBook(symbol string) *Book {
	return &Book{
		Symbol: symbol,
		bids:   newLevelIndex(true),
		asks:   newLevelIndex(false),
		byID:   make(map[uint64]*Node),
	}
}

func (b *Book) tree(side Side) *levelIndex {
	if side == Bid {
		return b.bids
	}
	return b.asks
}

// Add rests order on the given side. Returns an error if its ID is
// already resting.
func (b *Book) Add(side Side, order *Order) error {
	if _, exists := b.byID[order.ID]; exists {
		return fmt.Errorf("refbroker/book: order %d already resting", order.ID)
	}
	tree := b.tree(side)
	level := tree.Get(order.Price)
	if level == nil {
		level = NewPriceLevel(order.Price)
		tree.Insert(level)
	}
	b.byID[order.ID] = level.Append(order)
	return nil
}

// Cancel removes an order from wherever it rests. Returns nil if not found.
func (b *Book) Cancel(side Side, orderID uint64) *Order {
	node, ok := b.byID[orderID]
	if !ok {
		return nil
	}
	level := node.level
	order := node.Order
	level.Remove(node)
	delete(b.byID, orderID)
	if level.IsEmpty() {
		b.tree(side).Delete(level.Price)
	}
	return order
}

func (b *Book) Get(orderID uint64) *Order {
	node, ok := b.byID[orderID]
	if !ok {
		return nil
	}
	return node.Order
}

func (b *Book) BestBid() *PriceLevel { return b.bids.Min() }
func (b *Book) BestAsk() *PriceLevel { return b.asks.Min() }

// Spread returns best ask minus best bid, or 0 if either side is empty.
func (b *Book) Spread() int64 {
	bid, ask := b.BestBid(), b.BestAsk()
	if bid == nil || ask == nil {
		return 0
	}
	return ask.Price - bid.Price
}

func (b *Book) BidLevels() int   { return b.bids.Size() }
func (b *Book) AskLevels() int   { return b.asks.Size() }
func (b *Book) TotalOrders() int { return len(b.byID) }

// Depth returns up to maxLevels price levels for side, best first. 0
// means all levels.
func (b *Book) Depth(side Side, maxLevels int) []*PriceLevel {
	var out []*PriceLevel
	n := 0
	b.tree(side).ForEach(func(level *PriceLevel) bool {
		out = append(out, level)
		n++
		return maxLevels <= 0 || n < maxLevels
	})
	return out
}
