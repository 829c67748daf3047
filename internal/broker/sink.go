package broker

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rishav/goldmine/internal/model"
	"github.com/rishav/goldmine/internal/transport"
	"github.com/rishav/goldmine/internal/wire"
)

// sinkWakeInterval bounds how long the pump's condition wait blocks
// before re-checking shutdown, mirroring the teacher's EventBatcher
// flush-or-shutdown select loop (internal/disruptor/batcher.go),
// generalized from "batch + fsync" to "drain one trade at a time,
// reconnecting as needed" (spec.md §4.7).
const sinkWakeInterval = time.Second

// sinkReconnectDelay is the backoff between dial attempts.
const sinkReconnectDelay = 5 * time.Second

// tradeSinkPump drains a queue of settled trades to a downstream sink
// line, one trade per frame, reconnecting on failure.
type tradeSinkPump struct {
	reg    *transport.Registry
	addr   string
	logger *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []model.Trade
	stopped bool

	queueLenGauge  func(int)
	retriesCounter func()
}

func newTradeSinkPump(reg *transport.Registry, addr string, logger *zap.Logger) *tradeSinkPump {
	p := &tradeSinkPump{reg: reg, addr: addr, logger: logger}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// setQueueLenGauge installs (or replaces) the callback invoked whenever
// the pending queue's length changes.
func (p *tradeSinkPump) setQueueLenGauge(f func(int)) {
	p.mu.Lock()
	p.queueLenGauge = f
	p.mu.Unlock()
}

// setRetriesCounter installs the callback invoked on every dial/send
// failure that forces a reconnect.
func (p *tradeSinkPump) setRetriesCounter(f func()) {
	p.mu.Lock()
	p.retriesCounter = f
	p.mu.Unlock()
}

// enqueue appends a trade for delivery. Never blocks.
func (p *tradeSinkPump) enqueue(t model.Trade) {
	p.mu.Lock()
	p.queue = append(p.queue, t)
	if p.queueLenGauge != nil {
		p.queueLenGauge(len(p.queue))
	}
	p.mu.Unlock()
	p.cond.Signal()
}

func (p *tradeSinkPump) stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

// run is the pump's single goroutine: dial, drain, reconnect on error,
// wake once a second even with an empty queue to observe shutdown
// (spec.md §4.7/§5 "1 s wake for shutdown checks").
func (p *tradeSinkPump) run() {
	var proto *wire.Protocol
	for {
		trade, ok := p.next()
		if !ok {
			return
		}

		if proto == nil {
			var err error
			proto, err = p.dial()
			if err != nil {
				p.logger.Warn("trade sink dial failed, requeueing", zap.Error(err))
				p.onRetry()
				p.requeueFront(trade)
				p.sleepOrStop(sinkReconnectDelay)
				continue
			}
		}

		if err := proto.Send(wire.NewControl(tradeToPayload(trade))); err != nil {
			p.logger.Warn("trade sink send failed, reconnecting", zap.Error(err))
			proto = nil
			p.onRetry()
			p.requeueFront(trade)
			continue
		}
	}
}

func (p *tradeSinkPump) dial() (*wire.Protocol, error) {
	line, err := p.reg.Dial(p.addr)
	if err != nil {
		return nil, err
	}
	return wire.NewProtocol(line), nil
}

// next blocks until a trade is available, sinkWakeInterval elapses, or
// the pump is stopped. The periodic wake exists purely to observe
// stopped without needing an extra shutdown channel, matching the
// cond-variable drain loop spec.md describes.
func (p *tradeSinkPump) next() (model.Trade, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 && !p.stopped {
		woke := make(chan struct{})
		go func() {
			time.Sleep(sinkWakeInterval)
			p.cond.Signal()
			close(woke)
		}()
		p.cond.Wait()
		select {
		case <-woke:
		default:
		}
	}
	if p.stopped && len(p.queue) == 0 {
		return model.Trade{}, false
	}

	trade := p.queue[0]
	p.queue = p.queue[1:]
	if p.queueLenGauge != nil {
		p.queueLenGauge(len(p.queue))
	}
	return trade, true
}

func (p *tradeSinkPump) onRetry() {
	p.mu.Lock()
	f := p.retriesCounter
	p.mu.Unlock()
	if f != nil {
		f()
	}
}

func (p *tradeSinkPump) requeueFront(t model.Trade) {
	p.mu.Lock()
	p.queue = append([]model.Trade{t}, p.queue...)
	p.mu.Unlock()
}

func (p *tradeSinkPump) sleepOrStop(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		p.mu.Lock()
		stopped := p.stopped
		p.mu.Unlock()
		if stopped {
			return
		}
		select {
		case <-timer.C:
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}
