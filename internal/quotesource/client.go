package quotesource

import (
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rishav/goldmine/internal/metrics"
	"github.com/rishav/goldmine/internal/model"
	"github.com/rishav/goldmine/internal/transport"
	"github.com/rishav/goldmine/internal/wire"
)

// reconnectDelay is the client's sleep between failed dial attempts
// (spec.md §4.6: "on failure, sleeps 5 s and retries").
const reconnectDelay = 5 * time.Second

// clientReceiveTimeout permits the client's reader loop to notice
// cancellation promptly (spec.md §4.6: "order of 2 s").
const clientReceiveTimeout = 2 * time.Second

// heartbeatInterval is how often the client sends a Service-Heartbeat
// to keep the connection alive.
const heartbeatInterval = 10 * time.Second

// Sink receives ticks dispatched by a Client.
type Sink interface {
	OnTick(ticker string, tick model.Tick)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ticker string, tick model.Tick)

// OnTick implements Sink.
func (f SinkFunc) OnTick(ticker string, tick model.Tick) { f(ticker, tick) }

// Client is the reconnecting QuoteSource client from spec.md §4.6: a
// background goroutine that dials, subscribes, and dispatches Data
// messages to registered sinks until Stop is called.
type Client struct {
	reg        *transport.Registry
	addr       string
	tickers    []string
	manualMode bool
	logger     *zap.Logger
	metrics    *metrics.Registry

	mu    sync.Mutex
	sinks []Sink

	running int32 // atomic
	done    chan struct{}
	wg      sync.WaitGroup

	protoMu sync.Mutex
	proto   *wire.Protocol // current connection's protocol, nil while disconnected
}

// NewClient builds a client that will subscribe to tickers (already
// comma-split) once started.
func NewClient(reg *transport.Registry, addr string, tickers []string, manualMode bool, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		reg:        reg,
		addr:       addr,
		tickers:    tickers,
		manualMode: manualMode,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// SetMetrics attaches a metrics registry; reconnects after this call
// increment its counter.
func (c *Client) SetMetrics(m *metrics.Registry) {
	c.mu.Lock()
	c.metrics = m
	c.mu.Unlock()
}

// AddSink registers a sink to receive dispatched ticks.
func (c *Client) AddSink(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, s)
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
			c.logger.Warn("quotesource client dial failed", zap.String("addr", c.addr), zap.Error(err))
			c.sleepOrStop(reconnectDelay)
			continue
		}
		if connectedOnce {
			c.mu.Lock()
			m := c.metrics
			c.mu.Unlock()
			if m != nil {
				m.ClientReconnects.WithLabelValues("quotesource").Inc()
			}
		}
		connectedOnce = true
		line.SetOption(transport.ReceiveTimeout, clientReceiveTimeout)
		proto := wire.NewProtocol(line)
		c.setProto(proto)
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

func (c *Client) runConnection(proto *wire.Protocol) {
	if err := c.sendStartStream(proto); err != nil {
		return
	}

	lastHeartbeat := time.Now()
	for !c.isStopping() {
		if time.Since(lastHeartbeat) > heartbeatInterval {
			_ = proto.Send(wire.NewService(wire.Heartbeat))
			lastHeartbeat = time.Now()
		}

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

func (c *Client) sendStartStream(proto *wire.Protocol) error {
	payload, _ := json.Marshal(controlRequest{
		Command:    "start-stream",
		Tickers:    c.tickers,
		ManualMode: c.manualMode,
	})
	if err := proto.Send(wire.NewControl(payload)); err != nil {
		return err
	}
	_, err := proto.Read() // the {result:"success"} response
	return err
}

func (c *Client) dispatch(msg wire.Message) {
	typ, ok := wire.TypeOf(msg)
	if !ok || typ != wire.Data {
		return
	}
	ticker := string(msg.Frame(1))
	tickBytes := msg.Frame(2)
	if len(tickBytes) != model.TickByteSize {
		return // unrecognized tick frame, silently dropped per spec.md §4.6
	}
	tick, err := model.DecodeTick(tickBytes)
	if err != nil {
		return
	}

	c.mu.Lock()
	sinks := append([]Sink(nil), c.sinks...)
	c.mu.Unlock()
	for _, s := range sinks {
		s.OnTick(ticker, tick)
	}
}

// RequestNextTick sends a Service-NextTick credit over the current
// connection, used in manual (pull) mode. It is a no-op while
// disconnected.
func (c *Client) RequestNextTick() error {
	c.protoMu.Lock()
	proto := c.proto
	c.protoMu.Unlock()
	if proto == nil {
		return nil
	}
	return proto.Send(wire.NewService(wire.NextTick))
}

// SplitTickers comma-splits a ticker list the way CLI callers provide
// it (spec.md §4.6).
func SplitTickers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, "t:"+p)
		}
	}
	return out
}
