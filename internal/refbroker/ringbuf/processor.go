package ringbuf

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rishav/goldmine/internal/refbroker/matching"
)

// Processor drains one RingBuffer into one matching.Engine on a single
// goroutine, so the engine's per-symbol books never need locking.
type Processor struct {
	rb      *RingBuffer
	engine  *matching.Engine
	logger  *zap.Logger
	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewProcessor(rb *RingBuffer, e *matching.Engine, logger *zap.Logger) *Processor {
	return &Processor{
		rb:     rb,
		engine: e,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start spawns the consumer goroutine.
func (p *Processor) Start() {
	p.running.Store(true)
	go p.loop()
}

// Stop signals the consumer to exit and waits for it to drain.
func (p *Processor) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.stopCh)
	<-p.doneCh
}

func (p *Processor) loop() {
	defer close(p.doneCh)

	next := uint64(1)
	for p.running.Load() {
		index := next & p.rb.mask
		s := &p.rb.slots[index]

		for {
			if atomic.LoadUint64(&s.seq) == next {
				break
			}
			select {
			case <-p.stopCh:
				return
			default:
				runtime.Gosched()
			}
		}

		p.process(s)
		atomic.StoreUint64(&p.rb.gatingSequence, next)
		next++
	}
}

func (p *Processor) process(s *slot) {
	req, responseCh := s.request, s.responseCh
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("refbroker processor panic", zap.Any("recovered", r))
			select {
			case responseCh <- &Response{Err: fmt.Errorf("refbroker: internal error: %v", r)}:
			default:
			}
		}
	}()

	switch req.Kind {
	case NewOrder:
		result := p.engine.ProcessOrder(req.Order)
		responseCh <- &Response{Result: result}
	case CancelOrder:
		order, err := p.engine.CancelOrder(req.Symbol, req.Side, req.OrderID)
		responseCh <- &Response{Order: order, Err: err}
	default:
		responseCh <- &Response{Err: fmt.Errorf("refbroker: unknown request kind %d", req.Kind)}
	}
}
