package quotesource

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/rishav/goldmine/internal/metrics"
	"github.com/rishav/goldmine/internal/model"
	"github.com/rishav/goldmine/internal/transport"
	"github.com/rishav/goldmine/internal/wire"
)

// sessionReceiveTimeout bounds every session read so the session can
// notice the server's shutdown flag (spec.md §5: "100-200 ms").
const sessionReceiveTimeout = 150 * time.Millisecond

// senderPollInterval is how often the pull-mode sender thread wakes to
// re-check the queue and the shutdown flag when it has no credit.
const senderPollInterval = 20 * time.Millisecond

// Session is one QuoteSource server connection: its own line, filter,
// and (in pull mode) tick queue and sender goroutine. Grounded on
// spec.md §4.5/§5's per-connection actor shape.
type Session struct {
	id      string
	traceID string
	proto   *wire.Protocol
	line    transport.Line
	filter  *model.Filter
	logger  *zap.Logger

	manualMode  bool
	credit      int64 // atomic, pull-mode only
	queue       *TickQueue
	lastDropped uint64

	metrics *metrics.Registry

	writeMu sync.Mutex // serializes proto.Send across the reader thread (push mode) and publish callers
	done    chan struct{}
	closed  int32 // atomic
}

func newSession(id string, line transport.Line, logger *zap.Logger, m *metrics.Registry) *Session {
	line.SetOption(transport.ReceiveTimeout, sessionReceiveTimeout)
	traceID := xid.New().String()
	return &Session{
		id:      id,
		traceID: traceID,
		proto:   wire.NewProtocol(line),
		line:    line,
		filter:  model.NewFilter(),
		logger:  logger.With(zap.String("trace_id", traceID), zap.String("session", id)),
		metrics: m,
		done:    make(chan struct{}),
	}
}

// Close tears down the session's line, unblocking any in-flight read or
// write with ConnectionLost.
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

// run is the session's reader loop: reads one message, dispatches it,
// repeats until a non-Timeout error. Runs on the server's per-session
// goroutine (spec.md §5 "Session thread (per client)").
func (s *Session) run() {
	s.logger.Debug("session started")
	defer s.logger.Debug("session ended")
	if s.queue != nil {
		go s.pullSenderLoop()
	}
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
	if !ok {
		return
	}
	switch typ {
	case wire.Control:
		s.handleControl(msg.Frame(1))
	case wire.Service:
		s.handleService(msg)
	}
}

func (s *Session) handleControl(payload []byte) {
	var req controlRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendControl(errorResponse("malformed control payload"))
		return
	}

	switch req.Command {
	case "request-capabilities":
		s.sendControl(capabilitiesPayload())
	case "start-stream":
		s.handleStartStream(req)
	default:
		s.sendControl(errorResponse("unknown command"))
	}
}

func (s *Session) handleStartStream(req controlRequest) {
	f := model.NewFilter()
	for _, ticker := range req.Tickers {
		if err := f.Subscribe(ticker); err != nil {
			s.sendControl(errorResponse(err.Error()))
			return
		}
	}
	s.filter = f

	if req.ManualMode {
		s.manualMode = true
		s.queue = NewTickQueue(DefaultQueueCapacity)
		go s.pullSenderLoop()
	}
	s.sendControl(successResponse())
}

func (s *Session) handleService(msg wire.Message) {
	sub, ok := wire.ServiceSubTypeOf(msg)
	if !ok {
		return
	}
	if sub == wire.NextTick && s.manualMode {
		atomic.AddInt64(&s.credit, 1)
	}
	// Heartbeat and any other sub-type require no server-side action.
}

func (s *Session) sendControl(payload []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.proto.Send(wire.NewControl(payload))
}

// publish delivers tick for ticker to this session if its filter
// accepts it: immediately in push mode, or by enqueueing in pull mode
// (spec.md §4.5).
func (s *Session) publish(ticker string, tick model.Tick) {
	if !s.filter.Matches(ticker) {
		return
	}
	if s.manualMode {
		s.queue.Push(ticker, tick)
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.proto.Send(wire.NewData(ticker, tick.Encode()))
	if s.metrics != nil {
		s.metrics.TicksPublished.WithLabelValues(ticker).Inc()
	}
}

// pullSenderLoop is the dedicated sender thread for pull-mode sessions
// (spec.md §4.5/§5): pops one tick and writes it only when credit is
// positive, consuming one credit per send.
func (s *Session) pullSenderLoop() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		if atomic.LoadInt64(&s.credit) <= 0 {
			time.Sleep(senderPollInterval)
			continue
		}
		entry, ok := s.queue.Pop()
		if !ok {
			s.reportDropped()
			time.Sleep(senderPollInterval)
			continue
		}
		atomic.AddInt64(&s.credit, -1)

		s.writeMu.Lock()
		_ = s.proto.Send(wire.NewData(entry.Ticker, entry.Tick.Encode()))
		s.writeMu.Unlock()
		if s.metrics != nil {
			s.metrics.TicksPublished.WithLabelValues(entry.Ticker).Inc()
		}
		s.reportDropped()
	}
}

// reportDropped adds any newly observed TickQueue overflow count to the
// metrics registry since the last check.
func (s *Session) reportDropped() {
	if s.metrics == nil {
		return
	}
	dropped := s.queue.Dropped()
	if dropped > s.lastDropped {
		s.metrics.TicksDropped.Add(float64(dropped - s.lastDropped))
		s.lastDropped = dropped
	}
}
