// Package refbroker is a reference implementation of broker.Adapter
// (spec.md §6's external collaborator), so BrokerServer can be exercised
// end to end without a real exchange connection: a single-threaded
// price-time matching core per symbol, pre-trade risk checks, and
// position bookkeeping, all adapted from the teacher's standalone
// matching engine and translated to and from the gateway's model.Order/
// model.Trade at this package's boundary.
package refbroker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rishav/goldmine/internal/broker"
	"github.com/rishav/goldmine/internal/fixedpoint"
	"github.com/rishav/goldmine/internal/model"
	"github.com/rishav/goldmine/internal/refbroker/matching"
	"github.com/rishav/goldmine/internal/refbroker/orderbook"
	"github.com/rishav/goldmine/internal/refbroker/ringbuf"
	"github.com/rishav/goldmine/internal/refbroker/risk"
	"github.com/rishav/goldmine/internal/refbroker/settlement"
)

const submitTimeout = 2 * time.Second

// Adapter implements broker.Adapter against the reference matching
// engine. One Adapter owns one matching.Engine (and therefore one or
// more symbols); account routing is static at construction.
type Adapter struct {
	accounts []string
	logger   *zap.Logger

	engine *matching.Engine
	risk   *risk.Checker
	cache  *settlement.RedisPositionCache // optional

	rb  *ringbuf.RingBuffer
	seq *ringbuf.Sequencer
	gen *ringbuf.Processor

	mu       sync.Mutex
	reactors []broker.Reactor
	orders   map[uint64]*model.Order // LocalID -> gateway-facing mirror
}

// New builds a reference adapter serving accounts, pre-registering
// symbols as tradable. cache may be nil (no Redis position mirroring).
func New(accounts, symbols []string, cache *settlement.RedisPositionCache, logger *zap.Logger) *Adapter {
	eng := matching.NewEngine()
	for _, s := range symbols {
		eng.AddSymbol(s)
	}

	rb := ringbuf.New(4096)
	a := &Adapter{
		accounts: accounts,
		logger:   logger,
		engine:   eng,
		risk:     risk.NewChecker(risk.DefaultConfig()),
		cache:    cache,
		rb:       rb,
		seq:      ringbuf.NewSequencer(rb),
		orders:   make(map[uint64]*model.Order),
	}
	a.gen = ringbuf.NewProcessor(rb, eng, logger)
	a.gen.Start()
	return a
}

// Stop drains the processor goroutine. Safe to call once.
func (a *Adapter) Stop() {
	a.gen.Stop()
}

func (a *Adapter) snapshotReactors() []broker.Reactor {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]broker.Reactor(nil), a.reactors...)
}

// SubmitOrder converts o into the engine's order vocabulary, runs
// pre-trade risk checks, submits it to the matching core, and
// translates the result back into OnOrder/OnTrade reactor callbacks.
func (a *Adapter) SubmitOrder(o *model.Order) error {
	a.mu.Lock()
	a.orders[o.LocalID] = o
	a.mu.Unlock()

	side := matching.Buy
	if o.Operation == model.Sell {
		side = matching.Sell
	}
	typ := matching.Limit
	if o.Type == model.Market {
		typ = matching.Market
	}

	mo := &matching.Order{
		Order:     orderbook.Order{ID: o.LocalID, Price: centsFromDecimal(o.Price), Quantity: o.Quantity},
		Symbol:    o.Security,
		AccountID: o.Account,
		Side:      side,
		Type:      typ,
	}

	if ok, reason := a.risk.Check(mo); !ok {
		o.Reject(reason)
		a.notifyOrder(o)
		return nil
	}

	if err := o.Submit(); err != nil {
		return err
	}
	a.notifyOrder(o)

	responseCh, err := a.seq.Submit(&ringbuf.Request{Kind: ringbuf.NewOrder, Order: mo})
	if err != nil {
		o.Fail(err.Error())
		a.notifyOrder(o)
		return nil
	}

	select {
	case resp := <-responseCh:
		a.applyResult(o, resp.Result)
	case <-time.After(submitTimeout):
		o.Fail("refbroker: matching engine did not respond in time")
		a.notifyOrder(o)
	}
	return nil
}

// applyResult walks an ExecutionResult's fills, routing each leg's
// trade and order-update callbacks, then reconciles the taker's final
// state.
func (a *Adapter) applyResult(taker *model.Order, result *matching.ExecutionResult) {
	if !result.Accepted {
		taker.Reject(result.RejectReason)
		a.notifyOrder(taker)
		return
	}

	for _, fill := range result.Fills {
		a.routeFillLeg(fill.MakerOrderID, fill)
		a.routeFillLeg(fill.TakerOrderID, fill)

		a.risk.ApplyFill(fill.MakerAccountID, fill.Symbol, oppositeSide(fill.TakerSide), fill.Quantity, fill.Price)
		a.risk.ApplyFill(fill.TakerAccountID, fill.Symbol, fill.TakerSide, fill.Quantity, fill.Price)
		a.mirrorPosition(fill.MakerAccountID, fill.Symbol)
		a.mirrorPosition(fill.TakerAccountID, fill.Symbol)
	}

	switch result.Order.Status {
	case matching.StatusCancelled:
		if result.RejectReason != "" {
			taker.Fail(result.RejectReason)
		} else if !taker.State.IsTerminal() {
			_ = taker.Cancel()
		}
		a.notifyOrder(taker)
	case matching.StatusRejected:
		taker.Reject(result.RejectReason)
		a.notifyOrder(taker)
	}
}

// routeFillLeg applies one fill to the gateway-facing mirror of
// orderID (maker or taker) and emits its trade + order-update, exactly
// as BrokerServer.OnTrade expects to see one trade per owning order.
func (a *Adapter) routeFillLeg(orderID uint64, fill matching.Fill) {
	a.mu.Lock()
	order, ok := a.orders[orderID]
	a.mu.Unlock()
	if !ok {
		return
	}

	trade := model.FromOrder(order)
	trade.Price = decimalFromCents(fill.Price)
	trade.Quantity = fill.Quantity
	trade.Volume = fixedpoint.FromFloat(trade.Price.ToFloat() * float64(fill.Quantity))
	trade.VolumeCurrency = "USD"

	for _, r := range a.snapshotReactors() {
		r.OnTrade(trade)
	}

	if err := order.ApplyFill(fill.Quantity); err != nil {
		a.logger.Warn("refbroker: fill desynced from gateway mirror", zap.Uint64("local_id", orderID), zap.Error(err))
	}
	a.notifyOrder(order)
}

func (a *Adapter) notifyOrder(o *model.Order) {
	for _, r := range a.snapshotReactors() {
		r.OnOrder(o)
	}
}

func (a *Adapter) mirrorPosition(accountID, symbol string) {
	if a.cache == nil {
		return
	}
	qty := a.risk.Position(accountID, symbol)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.cache.Set(ctx, accountID, symbol, qty); err != nil {
		a.logger.Warn("refbroker: redis position mirror failed", zap.String("account", accountID), zap.Error(err))
	}
}

// CancelOrder cancels a resting order in the matching engine and
// notifies reactors of the outcome.
func (a *Adapter) CancelOrder(o *model.Order) error {
	side := matching.Buy
	if o.Operation == model.Sell {
		side = matching.Sell
	}

	responseCh, err := a.seq.Submit(&ringbuf.Request{
		Kind:    ringbuf.CancelOrder,
		Symbol:  o.Security,
		Side:    side,
		OrderID: o.LocalID,
	})
	if err != nil {
		return err
	}

	select {
	case resp := <-responseCh:
		if resp.Err != nil {
			return nil // already gone from the book (filled/cancelled); not an error to the caller
		}
		_ = o.Cancel()
		a.notifyOrder(o)
	case <-time.After(submitTimeout):
		return fmt.Errorf("refbroker: cancel did not complete in time")
	}
	return nil
}

func (a *Adapter) RegisterReactor(r broker.Reactor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reactors = append(a.reactors, r)
}

func (a *Adapter) UnregisterReactor(r broker.Reactor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, existing := range a.reactors {
		if existing == r {
			a.reactors = append(a.reactors[:i], a.reactors[i+1:]...)
			return
		}
	}
}

func (a *Adapter) Order(localID uint64) (*model.Order, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.orders[localID]
	return o, ok
}

func (a *Adapter) Accounts() []string { return a.accounts }

func (a *Adapter) HasAccount(account string) bool {
	for _, acc := range a.accounts {
		if acc == account {
			return true
		}
	}
	return false
}

func (a *Adapter) Positions() []broker.Position {
	rows := a.risk.Snapshot()
	out := make([]broker.Position, 0, len(rows))
	for _, row := range rows {
		out = append(out, broker.Position{Account: row.AccountID, Security: row.Symbol, Quantity: row.Quantity})
	}
	return out
}

func oppositeSide(s orderbook.Side) orderbook.Side {
	if s == orderbook.Bid {
		return orderbook.Ask
	}
	return orderbook.Bid
}

// centsFromDecimal converts a gateway fixedpoint.Decimal price to cents,
// truncating sub-cent precision the matching engine doesn't model.
func centsFromDecimal(d fixedpoint.Decimal) int64 {
	return d.Integer*100 + d.Fractional/1_000_000
}

// decimalFromCents is centsFromDecimal's inverse, for translating a
// fill's execution price back to the gateway's price type.
func decimalFromCents(cents int64) fixedpoint.Decimal {
	return fixedpoint.Decimal{Integer: cents / 100, Fractional: (cents % 100) * 1_000_000}
}
