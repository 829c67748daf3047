// Package risk runs the reference broker adapter's pre-trade checks and
// tracks per-account positions, adapted from the teacher's standalone
// risk checker into the adapter's own order vocabulary.
package risk

import (
	"fmt"
	"sync"

	"github.com/rishav/goldmine/internal/refbroker/matching"
	"github.com/rishav/goldmine/internal/refbroker/orderbook"
)

// Config bounds what the reference adapter will accept before an order
// ever reaches the matching core.
type Config struct {
	MaxOrderSize     int64
	MaxOrderValue    int64 // cents
	MaxPositionSize  int64
	PriceBandPercent float64 // 0.10 = 10% from the last traded price
}

// DefaultConfig is permissive enough for a reference adapter but still
// catches fat-finger orders.
func DefaultConfig() Config {
	return Config{
		MaxOrderSize:     100_000,
		MaxOrderValue:    10_000_000_00,
		MaxPositionSize:  1_000_000,
		PriceBandPercent: 0.10,
	}
}

// Checker runs pre-trade checks and tracks per-account positions. There
// is no separate T+2 settlement stage here: a fill updates the position
// the moment the matching engine reports it, since the reference
// adapter has no external clearing house to model.
type Checker struct {
	cfg        Config
	mu         sync.RWMutex
	positions  map[string]map[string]int64 // account -> symbol -> net qty
	references map[string]int64            // symbol -> last traded price (cents)
}

func NewChecker(cfg Config) *Checker {
	return &Checker{
		cfg:        cfg,
		positions:  make(map[string]map[string]int64),
		references: make(map[string]int64),
	}
}

// Check runs every pre-trade check and returns the first failure, or an
// empty reason on pass.
func (c *Checker) Check(o *matching.Order) (ok bool, reason string) {
	if o.Quantity > c.cfg.MaxOrderSize {
		return false, fmt.Sprintf("order size %d exceeds max %d", o.Quantity, c.cfg.MaxOrderSize)
	}
	if o.Price > 0 {
		value := o.Price * o.Quantity
		if value > c.cfg.MaxOrderValue {
			return false, fmt.Sprintf("order value %s exceeds max %s", matching.FormatPrice(value), matching.FormatPrice(c.cfg.MaxOrderValue))
		}
	}
	if o.Type == matching.Limit && o.Price > 0 && !c.inPriceBand(o.Symbol, o.Price) {
		return false, fmt.Sprintf("price %s outside band around reference %s", matching.FormatPrice(o.Price), matching.FormatPrice(c.ReferencePrice(o.Symbol)))
	}
	if !c.withinPositionLimit(o) {
		return false, fmt.Sprintf("would exceed position limit of %d shares", c.cfg.MaxPositionSize)
	}
	return true, ""
}

func (c *Checker) inPriceBand(symbol string, price int64) bool {
	c.mu.RLock()
	ref := c.references[symbol]
	c.mu.RUnlock()
	if ref == 0 {
		return true
	}
	band := int64(float64(ref) * c.cfg.PriceBandPercent)
	return price >= ref-band && price <= ref+band
}

func (c *Checker) withinPositionLimit(o *matching.Order) bool {
	c.mu.RLock()
	current := c.positions[o.AccountID][o.Symbol]
	c.mu.RUnlock()

	projected := current + o.Quantity
	if o.Side == orderbook.Ask {
		projected = current - o.Quantity
	}
	if projected < 0 {
		projected = -projected
	}
	return projected <= c.cfg.MaxPositionSize
}

// ApplyFill nets a fill leg into account's position and refreshes the
// symbol's reference price.
func (c *Checker) ApplyFill(accountID, symbol string, side orderbook.Side, quantity, price int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.positions[accountID] == nil {
		c.positions[accountID] = make(map[string]int64)
	}
	if side == orderbook.Bid {
		c.positions[accountID][symbol] += quantity
	} else {
		c.positions[accountID][symbol] -= quantity
	}
	c.references[symbol] = price
}

func (c *Checker) Position(accountID, symbol string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.positions[accountID][symbol]
}

func (c *Checker) ReferencePrice(symbol string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.references[symbol]
}

// PositionRow is one non-zero account/symbol net position.
type PositionRow struct {
	AccountID string
	Symbol    string
	Quantity  int64
}

// Snapshot lists every account/symbol position currently tracked.
func (c *Checker) Snapshot() []PositionRow {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var rows []PositionRow
	for account, bySymbol := range c.positions {
		for symbol, qty := range bySymbol {
			if qty != 0 {
				rows = append(rows, PositionRow{AccountID: account, Symbol: symbol, Quantity: qty})
			}
		}
	}
	return rows
}
