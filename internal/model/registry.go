package model

import (
	"fmt"
	"sync"
)

// OrderRegistry is a session's order tables (spec.md §3): active orders
// indexed by both ClientAssignedID and LocalID, and a separate retired
// set for terminal orders. Mutex-guarded because the owning session
// thread and the adapter-callback thread both touch it (spec.md §5).
type OrderRegistry struct {
	mu             sync.Mutex
	byClientID     map[uint64]*Order
	byLocalID      map[uint64]*Order
	retired        map[uint64]*Order // keyed by LocalID
}

// NewOrderRegistry returns an empty registry.
func NewOrderRegistry() *OrderRegistry {
	return &OrderRegistry{
		byClientID: make(map[uint64]*Order),
		byLocalID:  make(map[uint64]*Order),
		retired:    make(map[uint64]*Order),
	}
}

// ErrDuplicateClientID is returned by Insert when client_assigned_id is
// already active on this connection (spec.md §8 scenario 5).
var ErrDuplicateClientID = fmt.Errorf("model: duplicate client_assigned_id on this connection")

// Insert adds a new active order, rejecting a duplicate
// ClientAssignedID per spec.md's uniqueness invariant.
func (r *OrderRegistry) Insert(o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byClientID[o.ClientAssignedID]; exists {
		return ErrDuplicateClientID
	}
	r.byClientID[o.ClientAssignedID] = o
	r.byLocalID[o.LocalID] = o
	return nil
}

// ByLocalID returns the active or retired order for localID.
func (r *OrderRegistry) ByLocalID(localID uint64) (*Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.byLocalID[localID]; ok {
		return o, true
	}
	o, ok := r.retired[localID]
	return o, ok
}

// ByClientID returns the active order for clientAssignedID.
func (r *OrderRegistry) ByClientID(clientAssignedID uint64) (*Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byClientID[clientAssignedID]
	return o, ok
}

// Retire moves a terminal order out of the active tables. Calling it on
// a non-terminal order is a programming error in the caller.
func (r *OrderRegistry) Retire(localID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byLocalID[localID]
	if !ok {
		return
	}
	delete(r.byLocalID, localID)
	delete(r.byClientID, o.ClientAssignedID)
	r.retired[localID] = o
}

// ActiveCount returns the number of active orders.
func (r *OrderRegistry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byLocalID)
}
