package model

import (
	"fmt"
	"strings"
	"sync"
)

// TickStreamPrefix is the only subscription-stream prefix the gateway
// supports (spec.md §3: "Supports only the t: (tick) stream prefix;
// requesting any other prefix fails the subscription with a parameter
// error").
const TickStreamPrefix = "t:"

// Wildcard subscribes to every ticker.
const Wildcard = "*"

// ErrUnsupportedStream is returned when a subscription request uses a
// prefix other than TickStreamPrefix.
var ErrUnsupportedStream = fmt.Errorf("model: only the %q stream prefix is supported", TickStreamPrefix)

// Filter is a per-client subscription set: either the wildcard or an
// explicit set of ticker strings.
type Filter struct {
	mu       sync.RWMutex
	wildcard bool
	tickers  map[string]struct{}
}

// NewFilter returns an empty filter matching nothing.
func NewFilter() *Filter {
	return &Filter{tickers: make(map[string]struct{})}
}

// Subscribe parses a stream token of the form "t:FOO" or "t:*" and adds
// it to the filter. Any other prefix is a parameter error.
func (f *Filter) Subscribe(stream string) error {
	if !strings.HasPrefix(stream, TickStreamPrefix) {
		return ErrUnsupportedStream
	}
	ticker := strings.TrimPrefix(stream, TickStreamPrefix)

	f.mu.Lock()
	defer f.mu.Unlock()
	if ticker == Wildcard {
		f.wildcard = true
		return nil
	}
	f.tickers[ticker] = struct{}{}
	return nil
}

// Unsubscribe removes a previously subscribed ticker (or the wildcard).
func (f *Filter) Unsubscribe(stream string) error {
	if !strings.HasPrefix(stream, TickStreamPrefix) {
		return ErrUnsupportedStream
	}
	ticker := strings.TrimPrefix(stream, TickStreamPrefix)

	f.mu.Lock()
	defer f.mu.Unlock()
	if ticker == Wildcard {
		f.wildcard = false
		return nil
	}
	delete(f.tickers, ticker)
	return nil
}

// Matches reports whether ticker passes the filter.
func (f *Filter) Matches(ticker string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.wildcard {
		return true
	}
	_, ok := f.tickers[ticker]
	return ok
}
