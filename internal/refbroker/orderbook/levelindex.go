package orderbook

import "sort"

// levelIndex keeps one side's PriceLevels ordered by price. It is backed
// by a plain sorted slice searched with sort.Search plus a map for O(1)
// lookup by price, rather than a balanced tree: the reference adapter
// this book belongs to is supplementary test/demo infrastructure, not a
// latency-critical matching core (SPEC_FULL.md's non-goals are explicit
// that no exchange-grade matching performance is in scope here), so the
// O(n) slice insert/delete this trades away tree-balancing for is an
// acceptable cost.
type levelIndex struct {
	prices     []int64
	levels     map[int64]*PriceLevel
	descending bool
}

// newLevelIndex builds an index for one book side. descending=true means
// Min returns the highest price (the bid side, where "best" is highest).
func newLevelIndex(descending bool) *levelIndex {
	return &levelIndex{levels: make(map[int64]*PriceLevel), descending: descending}
}

func (t *levelIndex) Size() int     { return len(t.prices) }
func (t *levelIndex) IsEmpty() bool { return len(t.prices) == 0 }

// Min returns the best price level for this side.
func (t *levelIndex) Min() *PriceLevel {
	if len(t.prices) == 0 {
		return nil
	}
	if t.descending {
		return t.levels[t.prices[len(t.prices)-1]]
	}
	return t.levels[t.prices[0]]
}

func (t *levelIndex) Get(price int64) *PriceLevel {
	return t.levels[price]
}

// position returns the index in prices at which price sits, or would be
// inserted to keep prices ascending.
func (t *levelIndex) position(price int64) int {
	return sort.Search(len(t.prices), func(i int) bool { return t.prices[i] >= price })
}

func (t *levelIndex) Insert(level *PriceLevel) {
	if _, exists := t.levels[level.Price]; exists {
		t.levels[level.Price] = level
		return
	}
	i := t.position(level.Price)
	t.prices = append(t.prices, 0)
	copy(t.prices[i+1:], t.prices[i:])
	t.prices[i] = level.Price
	t.levels[level.Price] = level
}

func (t *levelIndex) Delete(price int64) {
	if _, exists := t.levels[price]; !exists {
		return
	}
	delete(t.levels, price)
	i := t.position(price)
	t.prices = append(t.prices[:i], t.prices[i+1:]...)
}

// ForEach visits every level in price order for this side: ascending for
// asks, descending for bids.
func (t *levelIndex) ForEach(fn func(*PriceLevel) bool) {
	if t.descending {
		for i := len(t.prices) - 1; i >= 0; i-- {
			if !fn(t.levels[t.prices[i]]) {
				return
			}
		}
		return
	}
	for i := 0; i < len(t.prices); i++ {
		if !fn(t.levels[t.prices[i]]) {
			return
		}
	}
}
