package broker

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/rishav/goldmine/internal/fixedpoint"
	"github.com/rishav/goldmine/internal/metrics"
	"github.com/rishav/goldmine/internal/model"
	"github.com/rishav/goldmine/internal/transport"
	"github.com/rishav/goldmine/internal/wire"
)

// sessionReceiveTimeout bounds every session read (spec.md §5).
const sessionReceiveTimeout = 150 * time.Millisecond

// Session is one BrokerServer connection: its identity, order registry,
// and line (spec.md §4.7, §3 "Client session").
type Session struct {
	id       string
	traceID  string
	proto    *wire.Protocol
	line     transport.Line
	registry *model.OrderRegistry
	server   *Server
	logger   *zap.Logger
	metrics  *metrics.Registry

	mu       sync.Mutex
	identity string

	writeMu sync.Mutex
	done    chan struct{}
	closed  int32
}

func newSession(id string, line transport.Line, server *Server, logger *zap.Logger, m *metrics.Registry) *Session {
	line.SetOption(transport.ReceiveTimeout, sessionReceiveTimeout)
	traceID := xid.New().String()
	return &Session{
		id:       id,
		traceID:  traceID,
		proto:    wire.NewProtocol(line),
		line:     line,
		registry: model.NewOrderRegistry(),
		server:   server,
		logger:   logger.With(zap.String("trace_id", traceID), zap.String("session", id)),
		metrics:  m,
		done:     make(chan struct{}),
	}
}

func (s *Session) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	close(s.done)
	return s.line.Close()
}

func (s *Session) isClosed() bool {
	return atomic.LoadInt32(&s.closed) != 0
}

func (s *Session) run() {
	s.logger.Debug("session started")
	defer s.logger.Debug("session ended")
	for {
		if s.isClosed() {
			return
		}
		msg, err := s.proto.Read()
		if err == wire.ErrTimeout {
			continue
		}
		if err != nil {
			return
		}
		s.dispatch(msg)
	}
}

func (s *Session) dispatch(msg wire.Message) {
	typ, ok := wire.TypeOf(msg)
	if !ok || typ != wire.Control {
		return
	}
	payload := msg.Frame(1)

	var env controlEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		s.sendControl(errorResponse("malformed control payload"))
		return
	}

	switch env.Command {
	case "get-identity":
		s.handleGetIdentity()
	case "order":
		s.handleOrder(payload)
	case "cancel-order":
		s.handleCancelOrder(payload)
	default:
		s.sendControl(errorResponse("unknown command"))
	}
}

func (s *Session) handleGetIdentity() {
	s.mu.Lock()
	if s.identity == "" {
		s.identity = uuid.NewString()
	}
	id := s.identity
	s.mu.Unlock()
	s.sendControl(identityPayload(id))
}

func (s *Session) hasIdentity() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity != ""
}

func (s *Session) handleOrder(payload []byte) {
	if !s.hasIdentity() {
		s.reject("no-identity")
		s.sendControl(errorResponse("identity required"))
		return
	}

	var req orderRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.reject("malformed-payload")
		s.sendControl(errorResponse("malformed order payload"))
		return
	}

	op, err := model.ParseOperation(req.Operation)
	if err != nil {
		s.reject("bad-operation")
		s.sendControl(errorResponse(err.Error()))
		return
	}
	typ, err := model.ParseOrderType(req.Type)
	if err != nil {
		s.reject("bad-type")
		s.sendControl(errorResponse(err.Error()))
		return
	}
	if typ == model.Limit && !req.HasPrice {
		s.reject("limit-no-price")
		s.sendControl(errorResponse("limit order requires a price"))
		return
	}

	order := model.New(req.ID, req.Account, req.Security, fixedpoint.FromFloat(req.Price), req.Quantity, op, typ)
	if req.StrategyID != "" || req.SignalID != "" || req.Comment != "" {
		order.Signal = &model.SignalID{StrategyID: req.StrategyID, SignalID: req.SignalID, Comment: req.Comment}
	}

	if err := s.registry.Insert(order); err != nil {
		s.reject("duplicate-client-id")
		s.sendControl(errorResponse(err.Error()))
		return
	}

	s.server.trackOrder(order.LocalID, s)
	s.server.routeSubmit(order)
	if s.metrics != nil {
		s.metrics.OrdersSubmitted.WithLabelValues(order.Account).Inc()
	}
	s.sendControl(successResponse())
}

func (s *Session) reject(reason string) {
	s.logger.Warn("order rejected", zap.String("reason", reason))
	if s.metrics != nil {
		s.metrics.OrdersRejected.WithLabelValues(reason).Inc()
	}
}

func (s *Session) handleCancelOrder(payload []byte) {
	var req cancelOrderRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendControl(errorResponse("malformed cancel-order payload"))
		return
	}

	order, ok := s.registry.ByClientID(req.ID)
	if !ok || order.Account != req.Account {
		s.sendControl(errorResponse("no matching active order"))
		return
	}

	s.server.routeCancel(order)
	s.sendControl(successResponse())
}

func (s *Session) sendControl(payload []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.proto.Send(wire.NewControl(payload))
}

// sendOrderUpdate delivers an on_order callback's result to the client
// (spec.md §4.7).
func (s *Session) sendOrderUpdate(clientAssignedID uint64, state model.OrderState, message string) {
	s.sendControl(orderUpdatePayload(clientAssignedID, state, message))
}

// sendTrade delivers a trade frame (already rewritten to the client's
// ClientAssignedID) to the client.
func (s *Session) sendTrade(t model.Trade) {
	s.sendControl(tradeToPayload(t))
}
