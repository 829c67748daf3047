// Package broker implements the order-routing server and client from
// spec.md §4.7-4.8: per-connection identity and order registry, fan-out
// to broker adapters by account, trade delivery with order-id
// rewriting, and the persistent trade-sink pump.
package broker

import "github.com/rishav/goldmine/internal/model"

// Position is one account/security net-position row (spec.md §6
// "positions() -> list").
type Position struct {
	Account  string
	Security string
	Quantity int64
}

// Reactor receives adapter callbacks. BrokerServer registers itself as
// a Reactor with every adapter it owns (spec.md §9 "Polymorphic broker
// adapter and session reactor").
type Reactor interface {
	OnOrder(o *model.Order)
	OnTrade(t model.Trade)
}

// Adapter is the external broker-adapter collaborator (spec.md §6).
// BrokerServer holds a slice of these and fans orders out to whichever
// ones accept the order's account.
type Adapter interface {
	SubmitOrder(o *model.Order) error
	CancelOrder(o *model.Order) error
	RegisterReactor(r Reactor)
	UnregisterReactor(r Reactor)
	Order(localID uint64) (*model.Order, bool)
	Accounts() []string
	HasAccount(account string) bool
	Positions() []Position
}
