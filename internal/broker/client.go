package broker

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rishav/goldmine/internal/metrics"
	"github.com/rishav/goldmine/internal/model"
	"github.com/rishav/goldmine/internal/transport"
	"github.com/rishav/goldmine/internal/wire"
)

// reconnectDelay is the client's sleep between failed dial attempts,
// matching quotesource.Client's reconnect cadence (spec.md §4.8).
const reconnectDelay = 5 * time.Second

// clientReceiveTimeout bounds a single read so the reader loop notices
// Stop/disconnection promptly.
const clientReceiveTimeout = 2 * time.Second

// submitBackoff is how long SubmitOrder/CancelOrder wait between
// retries while no connection is established (spec.md §4.8 "100 ms
// submit backoff").
const submitBackoff = 100 * time.Millisecond

// ErrClientStopped is returned by Submit/Cancel once Stop has been
// called.
var ErrClientStopped = errors.New("broker: client stopped")

// ClientReactor receives order/trade callbacks dispatched by a Client
// (spec.md §4.8's on_order/on_trade, mirrored client-side).
type ClientReactor interface {
	OnOrder(o *model.Order)
	OnTrade(t model.Trade)
}

// Client is the reconnecting BrokerServer client: it re-establishes
// identity on every connection, mirrors submitted orders locally so
// server order-update/trade frames (keyed by the client's own id) can
// be paired back to a *model.Order, and dispatches callbacks to
// registered reactors (spec.md §4.8).
type Client struct {
	reg     *transport.Registry
	addr    string
	logger  *zap.Logger
	metrics *metrics.Registry

	mu       sync.Mutex
	reactors []ClientReactor
	orders   map[uint64]*model.Order // by ClientAssignedID

	identityMu sync.Mutex
	identity   string

	running int32 // atomic
	done    chan struct{}
	wg      sync.WaitGroup

	protoMu sync.Mutex
	proto   *wire.Protocol
	writeMu sync.Mutex
}

// NewClient builds a client for addr (an inproc/local/tcp URI).
func NewClient(reg *transport.Registry, addr string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		reg:    reg,
		addr:   addr,
		logger: logger,
		orders: make(map[uint64]*model.Order),
		done:   make(chan struct{}),
	}
}

// SetMetrics attaches a metrics registry; reconnects after this call
// increment its counter.
func (c *Client) SetMetrics(m *metrics.Registry) {
	c.mu.Lock()
	c.metrics = m
	c.mu.Unlock()
}

// AddReactor registers r to receive order/trade callbacks.
func (c *Client) AddReactor(r ClientReactor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reactors = append(c.reactors, r)
}

// Identity returns the identity assigned by the server on the most
// recent connection, or "" if never connected.
func (c *Client) Identity() string {
	c.identityMu.Lock()
	defer c.identityMu.Unlock()
	return c.identity
}

// Start launches the client's background reconnect loop.
func (c *Client) Start() {
	if !atomic.CompareAndSwapInt32(&c.running, 0, 1) {
		return
	}
	c.wg.Add(1)
	go c.loop()
}

// Stop signals the loop to exit and waits for it to finish.
func (c *Client) Stop() {
	if !atomic.CompareAndSwapInt32(&c.running, 1, 0) {
		return
	}
	close(c.done)
	c.wg.Wait()
}

func (c *Client) isStopping() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) loop() {
	defer c.wg.Done()
	connectedOnce := false
	for !c.isStopping() {
		line, err := c.reg.Dial(c.addr)
		if err != nil {
			c.logger.Warn("broker client dial failed", zap.String("addr", c.addr), zap.Error(err))
			c.sleepOrStop(reconnectDelay)
			continue
		}
		if connectedOnce {
			c.mu.Lock()
			m := c.metrics
			c.mu.Unlock()
			if m != nil {
				m.ClientReconnects.WithLabelValues("broker").Inc()
			}
		}
		connectedOnce = true
		line.SetOption(transport.ReceiveTimeout, clientReceiveTimeout)
		proto := wire.NewProtocol(line)
		c.setProto(proto)

		if err := c.handshakeIdentity(proto); err != nil {
			c.setProto(nil)
			line.Close()
			c.sleepOrStop(reconnectDelay)
			continue
		}

		c.runConnection(proto)
		c.setProto(nil)
		line.Close()
	}
}

func (c *Client) setProto(p *wire.Protocol) {
	c.protoMu.Lock()
	c.proto = p
	c.protoMu.Unlock()
}

func (c *Client) sleepOrStop(d time.Duration) {
	select {
	case <-c.done:
	case <-time.After(d):
	}
}

// handshakeIdentity issues get-identity once per connection (spec.md
// §4.8: "identity-on-first-connect").
func (c *Client) handshakeIdentity(proto *wire.Protocol) error {
	payload, _ := json.Marshal(controlEnvelope{Command: "get-identity"})
	if err := proto.Send(wire.NewControl(payload)); err != nil {
		return err
	}
	msg, err := proto.Read()
	if err != nil {
		return err
	}
	var resp identityResponse
	if err := json.Unmarshal(msg.Frame(1), &resp); err != nil {
		return err
	}
	c.identityMu.Lock()
	c.identity = resp.Identity
	c.identityMu.Unlock()
	return nil
}

func (c *Client) runConnection(proto *wire.Protocol) {
	for !c.isStopping() {
		msg, err := proto.Read()
		if err == wire.ErrTimeout {
			continue
		}
		if err != nil {
			return
		}
		c.dispatch(msg)
	}
}

// dispatch sniffs the control payload's shape to tell an order-update
// from a trade from a bare result response, since every broker control
// frame shares the same Control message type (spec.md §4.7/§4.8).
func (c *Client) dispatch(msg wire.Message) {
	typ, ok := wire.TypeOf(msg)
	if !ok || typ != wire.Control {
		return
	}
	payload := msg.Frame(1)

	var shape struct {
		Order   *orderUpdateBody `json:"order"`
		OrderID *uint64          `json:"order-id"`
	}
	if err := json.Unmarshal(payload, &shape); err != nil {
		return
	}
	switch {
	case shape.Order != nil:
		c.handleOrderUpdate(*shape.Order)
	case shape.OrderID != nil:
		c.handleTrade(payload)
	}
}

func (c *Client) handleOrderUpdate(body orderUpdateBody) {
	c.mu.Lock()
	order, ok := c.orders[body.ID]
	reactors := append([]ClientReactor(nil), c.reactors...)
	c.mu.Unlock()
	if !ok {
		return
	}

	state := parseClientState(body.NewState)
	switch state {
	case model.Rejected:
		order.Reject(body.Message)
	case model.Cancelled:
		_ = order.Cancel()
	case model.Error:
		order.Fail(body.Message)
	case model.Submitted:
		_ = order.Submit()
	}
	order.Message = body.Message

	for _, r := range reactors {
		r.OnOrder(order)
	}
	if order.State.IsTerminal() {
		c.mu.Lock()
		delete(c.orders, body.ID)
		c.mu.Unlock()
	}
}

func parseClientState(s string) model.OrderState {
	for _, st := range []model.OrderState{
		model.Unsubmitted, model.Submitted, model.PartiallyExecuted,
		model.Executed, model.Cancelled, model.Rejected, model.Error,
	} {
		if st.String() == s {
			return st
		}
	}
	return model.Unsubmitted
}

func (c *Client) handleTrade(payload []byte) {
	t, err := tradeFromPayload(payload)
	if err != nil {
		return
	}

	c.mu.Lock()
	order, ok := c.orders[t.OrderID]
	reactors := append([]ClientReactor(nil), c.reactors...)
	c.mu.Unlock()
	if ok {
		_ = order.ApplyFill(t.Quantity)
	}

	for _, r := range reactors {
		r.OnTrade(t)
	}
}

// SubmitOrder sends o to the server, retrying every submitBackoff
// while disconnected, and registers o for order-update/trade pairing
// by its ClientAssignedID.
func (c *Client) SubmitOrder(o *model.Order) error {
	payload, err := json.Marshal(orderRequest{
		Command:    "order",
		ID:         o.ClientAssignedID,
		Account:    o.Account,
		Security:   o.Security,
		Type:       o.Type.String(),
		Operation:  o.Operation.String(),
		Quantity:   o.Quantity,
		Price:      o.Price.ToFloat(),
		HasPrice:   o.Type == model.Limit,
		StrategyID: signalField(o, func(s model.SignalID) string { return s.StrategyID }),
		SignalID:   signalField(o, func(s model.SignalID) string { return s.SignalID }),
		Comment:    signalField(o, func(s model.SignalID) string { return s.Comment }),
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.orders[o.ClientAssignedID] = o
	c.mu.Unlock()

	return c.sendWithBackoff(payload)
}

func signalField(o *model.Order, pick func(model.SignalID) string) string {
	if o.Signal == nil {
		return ""
	}
	return pick(*o.Signal)
}

// CancelOrder requests cancellation of the order identified by
// clientAssignedID/account.
func (c *Client) CancelOrder(clientAssignedID uint64, account string) error {
	payload, err := json.Marshal(cancelOrderRequest{
		Command: "cancel-order",
		ID:      clientAssignedID,
		Account: account,
	})
	if err != nil {
		return err
	}
	return c.sendWithBackoff(payload)
}

func (c *Client) sendWithBackoff(payload []byte) error {
	for {
		c.protoMu.Lock()
		proto := c.proto
		c.protoMu.Unlock()

		if proto != nil {
			c.writeMu.Lock()
			err := proto.Send(wire.NewControl(payload))
			c.writeMu.Unlock()
			if err == nil {
				return nil
			}
		}
		if c.isStopping() {
			return ErrClientStopped
		}
		c.sleepOrStop(submitBackoff)
	}
}
