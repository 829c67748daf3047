// Package orderbook implements the price-time-priority limit order book
// used by the reference matching adapter: a sorted price index per side
// (see levelindex.go), with a FIFO queue of resting orders at each price
// level built on container/list rather than a hand-rolled linked list.
package orderbook

import "container/list"

// Order is the minimal resting-order shape the book needs to track;
// engine.Order satisfies it by embedding these fields directly.
type Order struct {
	ID        uint64
	Price     int64
	Quantity  int64
	FilledQty int64
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() int64 {
	return o.Quantity - o.FilledQty
}

// Node is an entry in a PriceLevel's FIFO queue, wrapping the
// container/list element that actually holds the queue position so
// Remove can splice it out in O(1) without the level walking its own
// list to find it.
type Node struct {
	Order *Order
	level *PriceLevel
	elem  *list.Element
}

// Next returns the following node in the queue, or nil at the tail.
func (n *Node) Next() *Node {
	next := n.elem.Next()
	if next == nil {
		return nil
	}
	return next.Value.(*Node)
}

// PriceLevel holds every resting order at one price, oldest first.
type PriceLevel struct {
	Price    int64
	orders   *list.List
	TotalQty int64
}

func NewPriceLevel(price int64) *PriceLevel {
	return &PriceLevel{Price: price, orders: list.New()}
}

func (pl *PriceLevel) Count() int    { return pl.orders.Len() }
func (pl *PriceLevel) IsEmpty() bool { return pl.orders.Len() == 0 }

// Head returns the oldest resting order at this level, or nil if empty.
func (pl *PriceLevel) Head() *Node {
	front := pl.orders.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*Node)
}

// Append adds an order to the tail of the queue (lowest time priority at
// this price) and returns its Node for later O(1) removal.
func (pl *PriceLevel) Append(order *Order) *Node {
	node := &Node{Order: order, level: pl}
	node.elem = pl.orders.PushBack(node)
	pl.TotalQty += order.Remaining()
	return node
}

// Remove splices node out of the queue in O(1).
func (pl *PriceLevel) Remove(node *Node) {
	if node == nil || node.elem == nil {
		return
	}
	pl.TotalQty -= node.Order.Remaining()
	pl.orders.Remove(node.elem)
	node.elem, node.level = nil, nil
}

// UpdateQuantity adjusts TotalQty when an order at this level is filled.
func (pl *PriceLevel) UpdateQuantity(delta int64) {
	pl.TotalQty += delta
}

// Orders returns every order at this level, head to tail. Allocates; used
// only for depth snapshots, not on the matching hot path.
func (pl *PriceLevel) Orders() []*Order {
	out := make([]*Order, 0, pl.orders.Len())
	for e := pl.orders.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*Node).Order)
	}
	return out
}
