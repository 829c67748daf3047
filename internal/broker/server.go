package broker

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rishav/goldmine/internal/metrics"
	"github.com/rishav/goldmine/internal/model"
	"github.com/rishav/goldmine/internal/transport"
)

// acceptPollInterval bounds the acceptor's WaitConnection call (spec.md §5).
const acceptPollInterval = 150 * time.Millisecond

// Server owns an acceptor, a set of broker adapters, and every session
// it has spawned. It registers itself as a Reactor with each adapter so
// on_order/on_trade callbacks route back to the owning session
// (spec.md §4.7).
type Server struct {
	acc      transport.Acceptor
	adapters []Adapter
	logger   *zap.Logger
	metrics  *metrics.Registry

	mu             sync.Mutex
	sessions       map[string]*Session
	orderToSession map[uint64]*Session
	running        bool

	sink *tradeSinkPump

	wg sync.WaitGroup
}

// SetMetrics attaches a metrics registry, wiring the trade-sink pump's
// queue-length gauge if a pump already exists.
func (s *Server) SetMetrics(m *metrics.Registry) {
	s.mu.Lock()
	s.metrics = m
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink.setQueueLenGauge(func(n int) { m.TradeSinkQueueLen.Set(float64(n)) })
		sink.setRetriesCounter(func() { m.TradeSinkRetries.Inc() })
	}
}

// NewServer binds addr and registers the given adapters, subscribing
// this server as their Reactor.
func NewServer(reg *transport.Registry, addr string, adapters []Adapter, sinkReg *transport.Registry, sinkAddr string, logger *zap.Logger) (*Server, error) {
	acc, err := reg.Listen(addr)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		acc:            acc,
		adapters:       adapters,
		logger:         logger,
		sessions:       make(map[string]*Session),
		orderToSession: make(map[uint64]*Session),
	}
	for _, a := range adapters {
		a.RegisterReactor(s)
	}
	if sinkAddr != "" {
		s.sink = newTradeSinkPump(sinkReg, sinkAddr, logger)
		go s.sink.run()
	}
	return s, nil
}

// Serve runs the acceptor loop until Stop is called (spec.md §5
// "Acceptor thread").
func (s *Server) Serve() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	var nextID uint64
	for {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if !running {
			return
		}

		line, err := s.acc.WaitConnection(acceptPollInterval)
		if err != nil {
			s.logger.Warn("broker accept failed", zap.Error(err))
			continue
		}
		if line == nil {
			continue
		}

		nextID++
		id := sessionIDFor(nextID)

		s.mu.Lock()
		m := s.metrics
		sess := newSession(id, line, s, s.logger, m)
		s.sessions[id] = sess
		if m != nil {
			m.BrokerSessions.Set(float64(len(s.sessions)))
		}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sess.run()
			s.removeSession(sess)
		}()
	}
}

func sessionIDFor(n uint64) string { return "brk-" + itoa(n) }

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func (s *Server) removeSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.id)
	for localID, owner := range s.orderToSession {
		if owner == sess {
			delete(s.orderToSession, localID)
		}
	}
	if s.metrics != nil {
		s.metrics.BrokerSessions.Set(float64(len(s.sessions)))
	}
}

func (s *Server) trackOrder(localID uint64, sess *Session) {
	s.mu.Lock()
	s.orderToSession[localID] = sess
	s.mu.Unlock()
}

func (s *Server) sessionForOrder(localID uint64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.orderToSession[localID]
	return sess, ok
}

// routeSubmit forwards order to every adapter whose HasAccount(account)
// is true (spec.md §4.7).
func (s *Server) routeSubmit(order *model.Order) {
	for _, a := range s.adapters {
		if a.HasAccount(order.Account) {
			_ = a.SubmitOrder(order)
		}
	}
}

// routeCancel forwards a cancel request to every adapter serving the
// order's account.
func (s *Server) routeCancel(order *model.Order) {
	for _, a := range s.adapters {
		if a.HasAccount(order.Account) {
			_ = a.CancelOrder(order)
		}
	}
}

// OnOrder implements Reactor: finds the session owning the order by
// local id and forwards the state change (spec.md §4.7).
func (s *Server) OnOrder(o *model.Order) {
	sess, ok := s.sessionForOrder(o.LocalID)
	if !ok {
		return
	}
	sess.sendOrderUpdate(o.ClientAssignedID, o.State, o.Message)
	if o.State.IsTerminal() {
		sess.registry.Retire(o.LocalID)
	}
}

// OnTrade implements Reactor (spec.md §4.7 on_trade): rewrites
// order_id to the owning order's client_assigned_id and the order's
// signal, updates executed_quantity/state, delivers trade then
// order-state to the client, and enqueues the original
// (server-identifier) trade onto the sink queue.
func (s *Server) OnTrade(t model.Trade) {
	sess, ok := s.sessionForOrder(t.OrderID)
	if !ok {
		if s.sink != nil {
			s.sink.enqueue(t)
		}
		return
	}
	order, ok := sess.registry.ByLocalID(t.OrderID)
	if !ok {
		return
	}

	clientTrade := t
	clientTrade.OrderID = order.ClientAssignedID
	clientTrade.Signal = order.Signal

	_ = order.ApplyFill(t.Quantity)

	sess.sendTrade(clientTrade)
	sess.sendOrderUpdate(order.ClientAssignedID, order.State, order.Message)
	if order.State.IsTerminal() {
		sess.registry.Retire(order.LocalID)
	}
	if s.metrics != nil {
		s.metrics.TradesRouted.Inc()
	}

	if s.sink != nil {
		s.sink.enqueue(t)
	}
}

// SessionCount returns the number of currently connected sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Stop signals the acceptor loop to exit, closes every session, stops
// the trade-sink pump, and waits for all goroutines to finish.
func (s *Server) Stop() {
	s.mu.Lock()
	s.running = false
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
	s.wg.Wait()
	if s.sink != nil {
		s.sink.stop()
	}
	s.acc.Close()
}
