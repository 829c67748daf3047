package broker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rishav/goldmine/internal/fixedpoint"
	"github.com/rishav/goldmine/internal/model"
)

// controlEnvelope is parsed first to dispatch on Command; the
// command-specific payload is then re-parsed from the same bytes.
type controlEnvelope struct {
	Command string `json:"command"`
}

// orderRequest is the full order payload (spec.md §4.7).
type orderRequest struct {
	Command    string  `json:"command"`
	ID         uint64  `json:"id"`
	Account    string  `json:"account"`
	Security   string  `json:"security"`
	Type       string  `json:"type"`
	Operation  string  `json:"operation"`
	Quantity   int64   `json:"quantity"`
	Price      float64 `json:"price,omitempty"`
	HasPrice   bool    `json:"-"`
	StrategyID string  `json:"strategy,omitempty"`
	SignalID   string  `json:"signal-id,omitempty"`
	Comment    string  `json:"comment,omitempty"`
}

// UnmarshalJSON tracks whether "price" was present so a limit order
// with price 0.0 is distinguishable from one with no price field at
// all (spec.md: "rejected if... limit with no price").
func (r *orderRequest) UnmarshalJSON(data []byte) error {
	type alias orderRequest
	aux := struct {
		Price *float64 `json:"price,omitempty"`
		*alias
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Price != nil {
		r.Price = *aux.Price
		r.HasPrice = true
	}
	return nil
}

type cancelOrderRequest struct {
	Command string `json:"command"`
	ID      uint64 `json:"id"`
	Account string `json:"account"`
}

type resultResponse struct {
	Result string `json:"result"`
	Reason string `json:"reason,omitempty"`
}

func successResponse() []byte {
	b, _ := json.Marshal(resultResponse{Result: "success"})
	return b
}

func errorResponse(reason string) []byte {
	b, _ := json.Marshal(resultResponse{Result: "error", Reason: reason})
	return b
}

type identityResponse struct {
	Identity string `json:"identity"`
}

func identityPayload(id string) []byte {
	b, _ := json.Marshal(identityResponse{Identity: id})
	return b
}

// orderUpdate is the server->client "order state changed" notification
// (spec.md §4.7 on_order): frame 1 of a Control message wrapping the
// client's own chosen id, not the gateway's local_id.
type orderUpdate struct {
	Order orderUpdateBody `json:"order"`
}

type orderUpdateBody struct {
	ID       uint64 `json:"id"`
	NewState string `json:"new-state"`
	Message  string `json:"message,omitempty"`
}

func orderUpdatePayload(clientAssignedID uint64, state model.OrderState, message string) []byte {
	b, _ := json.Marshal(orderUpdate{Order: orderUpdateBody{
		ID:       clientAssignedID,
		NewState: state.String(),
		Message:  message,
	}})
	return b
}

// tradePayload is the trade JSON schema shared by client-facing trade
// frames and the trade-sink pump (spec.md §4.7 "Execution-time
// formatting").
type tradePayload struct {
	OrderID        uint64  `json:"order-id"`
	Price          float64 `json:"price"`
	Quantity       int64   `json:"quantity"`
	Volume         float64 `json:"volume"`
	VolumeCurrency string  `json:"volume-currency,omitempty"`
	Operation      string  `json:"operation"`
	Account        string  `json:"account"`
	Security       string  `json:"security"`
	Timestamp      string  `json:"timestamp"`
	StrategyID     string  `json:"strategy,omitempty"`
	SignalID       string  `json:"signal-id,omitempty"`
	Comment        string  `json:"comment,omitempty"`
}

func tradeToPayload(t model.Trade) []byte {
	p := tradePayload{
		OrderID:        t.OrderID,
		Price:          t.Price.ToFloat(),
		Quantity:       t.Quantity,
		Volume:         t.Volume.ToFloat(),
		VolumeCurrency: t.VolumeCurrency,
		Operation:      t.Operation.String(),
		Account:        t.Account,
		Security:       t.Security,
		Timestamp:      t.Timestamp.Format(model.ExecutionTimeLayout),
	}
	if t.Signal != nil {
		p.StrategyID = t.Signal.StrategyID
		p.SignalID = t.Signal.SignalID
		p.Comment = t.Signal.Comment
	}
	b, _ := json.Marshal(p)
	return b
}

func tradeFromPayload(data []byte) (model.Trade, error) {
	var p tradePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Trade{}, err
	}
	op, err := model.ParseOperation(p.Operation)
	if err != nil {
		return model.Trade{}, err
	}
	ts, err := time.Parse(model.ExecutionTimeLayout, p.Timestamp)
	if err != nil {
		return model.Trade{}, fmt.Errorf("broker: parse trade timestamp: %w", err)
	}
	t := model.Trade{
		OrderID:        p.OrderID,
		Price:          fixedpoint.FromFloat(p.Price),
		Quantity:       p.Quantity,
		Volume:         fixedpoint.FromFloat(p.Volume),
		VolumeCurrency: p.VolumeCurrency,
		Operation:      op,
		Account:        p.Account,
		Security:       p.Security,
		Timestamp:      ts,
	}
	if p.StrategyID != "" || p.SignalID != "" || p.Comment != "" {
		t.Signal = &model.SignalID{StrategyID: p.StrategyID, SignalID: p.SignalID, Comment: p.Comment}
	}
	return t, nil
}
