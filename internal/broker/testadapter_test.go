package broker

import (
	"sync"

	"github.com/rishav/goldmine/internal/model"
)

// fakeAdapter is a minimal in-memory Adapter for tests: it accepts
// orders for one account and, unless restingOnly is set, fills them
// entirely and synchronously on SubmitOrder.
type fakeAdapter struct {
	account     string
	restingOnly bool

	mu       sync.Mutex
	reactors []Reactor
	orders   map[uint64]*model.Order
	cancels  []uint64
}

func newFakeAdapter(account string) *fakeAdapter {
	return &fakeAdapter{account: account, orders: make(map[uint64]*model.Order)}
}

func newRestingFakeAdapter(account string) *fakeAdapter {
	return &fakeAdapter{account: account, restingOnly: true, orders: make(map[uint64]*model.Order)}
}

func (a *fakeAdapter) SubmitOrder(o *model.Order) error {
	a.mu.Lock()
	a.orders[o.LocalID] = o
	reactors := append([]Reactor(nil), a.reactors...)
	restingOnly := a.restingOnly
	a.mu.Unlock()

	_ = o.Submit()
	for _, r := range reactors {
		r.OnOrder(o)
	}
	if restingOnly {
		return nil
	}

	trade := model.FromOrder(o)
	trade.Quantity = o.Quantity
	for _, r := range reactors {
		r.OnTrade(trade)
	}
	return nil
}

func (a *fakeAdapter) CancelOrder(o *model.Order) error {
	a.mu.Lock()
	a.cancels = append(a.cancels, o.LocalID)
	a.mu.Unlock()
	return nil
}

func (a *fakeAdapter) RegisterReactor(r Reactor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reactors = append(a.reactors, r)
}

func (a *fakeAdapter) UnregisterReactor(r Reactor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, existing := range a.reactors {
		if existing == r {
			a.reactors = append(a.reactors[:i], a.reactors[i+1:]...)
			return
		}
	}
}

func (a *fakeAdapter) Order(localID uint64) (*model.Order, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.orders[localID]
	return o, ok
}

func (a *fakeAdapter) Accounts() []string { return []string{a.account} }

func (a *fakeAdapter) HasAccount(account string) bool { return account == a.account }

func (a *fakeAdapter) Positions() []Position { return nil }
