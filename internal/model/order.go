package model

import (
	"fmt"
	"sync/atomic"

	"github.com/rishav/goldmine/internal/fixedpoint"
)

// Operation is the buy/sell side of an order (spec.md §3).
type Operation int

const (
	Buy Operation = iota
	Sell
)

func (o Operation) String() string {
	switch o {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// ParseOperation parses the wire token for Operation.
func ParseOperation(s string) (Operation, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("model: unknown operation %q", s)
	}
}

// OrderType distinguishes market orders (no price protection) from
// limit orders (price required).
type OrderType int

const (
	Market OrderType = iota
	Limit
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "market"
	case Limit:
		return "limit"
	default:
		return "unknown"
	}
}

// ParseOrderType parses the wire token for OrderType.
func ParseOrderType(s string) (OrderType, error) {
	switch s {
	case "market":
		return Market, nil
	case "limit":
		return Limit, nil
	default:
		return 0, fmt.Errorf("model: unknown order type %q", s)
	}
}

// OrderState is a node in the order state machine (spec.md §3).
// Terminal states are leaves: Executed, Cancelled, Rejected, Error.
type OrderState int

const (
	Unsubmitted OrderState = iota
	Submitted
	PartiallyExecuted
	Executed
	Cancelled
	Rejected
	Error
)

func (s OrderState) String() string {
	switch s {
	case Unsubmitted:
		return "unsubmitted"
	case Submitted:
		return "submitted"
	case PartiallyExecuted:
		return "partially-executed"
	case Executed:
		return "executed"
	case Cancelled:
		return "cancelled"
	case Rejected:
		return "rejected"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether s is a leaf of the order state machine.
func (s OrderState) IsTerminal() bool {
	switch s {
	case Executed, Cancelled, Rejected, Error:
		return true
	default:
		return false
	}
}

// localIDCounter mints gateway-wide unique, monotonically increasing,
// non-zero local order ids. A single atomic counter per spec.md §5's
// "no process-wide mutable state other than... a gateway-wide atomic
// counter minting local_ids" — one counter for the whole gateway, not
// one per engine as the teacher's SequenceNum was.
var localIDCounter uint64

// NextLocalID returns the next gateway-assigned local_id.
func NextLocalID() uint64 {
	return atomic.AddUint64(&localIDCounter, 1)
}

// SignalID is an optional strategy/signal tag carried by an order and
// copied onto any trade it generates.
type SignalID struct {
	StrategyID string
	SignalID   string
	Comment    string
}

// Order is the gateway's mutable order record (spec.md §3). LocalID is
// assigned once by the gateway at creation via NextLocalID and never
// changes; ClientAssignedID is chosen by the submitting client and is
// unique only within that client's connection.
type Order struct {
	LocalID          uint64
	ClientAssignedID uint64
	Account          string
	Security         string
	Price            fixedpoint.Decimal
	Quantity         int64
	ExecutedQuantity int64
	Operation        Operation
	Type             OrderType
	State            OrderState
	Message          string
	Signal           *SignalID
}

// New builds an Unsubmitted order with a freshly minted LocalID.
func New(clientAssignedID uint64, account, security string, price fixedpoint.Decimal, quantity int64, op Operation, typ OrderType) *Order {
	return &Order{
		LocalID:          NextLocalID(),
		ClientAssignedID: clientAssignedID,
		Account:          account,
		Security:         security,
		Price:            price,
		Quantity:         quantity,
		Operation:        op,
		Type:             typ,
		State:            Unsubmitted,
	}
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() int64 {
	return o.Quantity - o.ExecutedQuantity
}

// ApplyFill advances the order's ExecutedQuantity and State per the
// state machine in spec.md §3: a fill that exactly completes the order
// executes it, a fill leaving quantity remaining partially executes it,
// and a fill pushing ExecutedQuantity beyond Quantity is an invariant
// violation that moves the order to Error rather than silently
// clamping.
func (o *Order) ApplyFill(quantity int64) error {
	if o.State.IsTerminal() {
		return fmt.Errorf("model: fill on terminal order %d (state=%s)", o.LocalID, o.State)
	}
	o.ExecutedQuantity += quantity
	switch {
	case o.ExecutedQuantity == o.Quantity:
		o.State = Executed
	case o.ExecutedQuantity < o.Quantity:
		o.State = PartiallyExecuted
	default:
		o.State = Error
		o.Message = fmt.Sprintf("executed_quantity %d exceeds quantity %d", o.ExecutedQuantity, o.Quantity)
	}
	return nil
}

// Cancel transitions a non-terminal order to Cancelled.
func (o *Order) Cancel() error {
	if o.State.IsTerminal() {
		return fmt.Errorf("model: cancel on terminal order %d (state=%s)", o.LocalID, o.State)
	}
	o.State = Cancelled
	return nil
}

// Reject transitions an Unsubmitted or Submitted order to Rejected.
func (o *Order) Reject(reason string) {
	if o.State != Unsubmitted && o.State != Submitted {
		return
	}
	o.State = Rejected
	o.Message = reason
}

// Submit transitions Unsubmitted to Submitted.
func (o *Order) Submit() error {
	if o.State != Unsubmitted {
		return fmt.Errorf("model: submit on order %d not Unsubmitted (state=%s)", o.LocalID, o.State)
	}
	o.State = Submitted
	return nil
}

// Fail moves any non-terminal order to Error, the adapter_error
// transition in spec.md §3's state diagram.
func (o *Order) Fail(reason string) {
	if o.State.IsTerminal() {
		return
	}
	o.State = Error
	o.Message = reason
}

func (o *Order) String() string {
	return fmt.Sprintf("Order{local_id:%d, client_id:%d, %s %s %s %d@%s, executed:%d, state:%s}",
		o.LocalID, o.ClientAssignedID, o.Operation, o.Type, o.Security, o.Quantity, o.Price, o.ExecutedQuantity, o.State)
}
