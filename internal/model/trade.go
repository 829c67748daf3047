package model

import (
	"fmt"
	"time"

	"github.com/rishav/goldmine/internal/fixedpoint"
)

// ExecutionTimeLayout is the wire format for trade/execution timestamps
// (spec.md §6): "YYYY-MM-DD hh:mm:ss.mmm" UTC.
const ExecutionTimeLayout = "2006-01-02 15:04:05.000"

// Trade is the gateway's immutable execution record (spec.md §3).
// OrderID carries the gateway local_id when generated by a broker
// adapter; BrokerServer rewrites it to the order's ClientAssignedID
// before the trade is sent to the owning client.
type Trade struct {
	OrderID        uint64
	Price          fixedpoint.Decimal
	Quantity       int64
	Volume         fixedpoint.Decimal
	VolumeCurrency string
	Operation      Operation
	Account        string
	Security       string
	Timestamp      time.Time
	Signal         *SignalID
}

// FromOrder copies the order's identity and signal tag onto a trade
// generated against it. The caller fills in price/quantity/volume.
func FromOrder(o *Order) Trade {
	return Trade{
		OrderID:   o.LocalID,
		Operation: o.Operation,
		Account:   o.Account,
		Security:  o.Security,
		Timestamp: time.Now().UTC(),
		Signal:    o.Signal,
	}
}

func (t Trade) String() string {
	return fmt.Sprintf("Trade{order_id:%d, %s %s %d@%s, volume:%s %s, ts:%s}",
		t.OrderID, t.Operation, t.Security, t.Quantity, t.Price,
		t.Volume, t.VolumeCurrency, t.Timestamp.Format(ExecutionTimeLayout))
}
