package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/rishav/goldmine/internal/bqueue"
)

// inprocRegistry is the process-wide connect queue and listener set
// described in spec.md §4.3/§9: "Necessary to let the in-proc acceptor
// match a connect request by address without OS involvement. Contain it
// behind a factory type whose constructor/destructor bracket registry
// lifetime; do not expose the globals." It is a package-private
// singleton — every InProcFactory in the process shares it, but nothing
// outside this file can reach it directly.
type inprocRegistry struct {
	mu        sync.Mutex
	cond      *sync.Cond
	listeners map[string]bool
	waiting   map[string][]*inprocHandshake
}

type inprocHandshake struct {
	serverLine *InProcLine
}

var (
	registryOnce sync.Once
	globalReg    *inprocRegistry
)

func getRegistry() *inprocRegistry {
	registryOnce.Do(func() {
		globalReg = &inprocRegistry{
			listeners: make(map[string]bool),
			waiting:   make(map[string][]*inprocHandshake),
		}
		globalReg.cond = sync.NewCond(&globalReg.mu)
	})
	return globalReg
}

// InProcLine is one half of an in-process line pair: it reads from one
// bqueue.Queue and writes to the other. The pair cross-wires so that
// writes on one side become reads on the other.
type InProcLine struct {
	readQ, writeQ   *bqueue.Queue
	recvTimeout     time.Duration
	sendTimeout     time.Duration
	hasRecvTimeout  bool
}

func newInProcPair() (client, server *InProcLine) {
	c2s := bqueue.New(64 * 1024)
	s2c := bqueue.New(64 * 1024)
	client = &InProcLine{readQ: s2c, writeQ: c2s}
	server = &InProcLine{readQ: c2s, writeQ: s2c}
	return client, server
}

// Read implements Line. A disconnect with nothing left to read raises
// ErrConnectionLost whether or not a receive timeout is configured. With
// a timeout configured, a read that times out returns (0, nil), which the
// message layer treats as Timeout.
func (l *InProcLine) Read(buf []byte) (int, error) {
	if l.hasRecvTimeout {
		n, err := l.readQ.ReadTimeout(buf, l.recvTimeout)
		if err == bqueue.ErrConnectionLost {
			return 0, ErrConnectionLost
		}
		return n, nil
	}
	n, err := l.readQ.Read(buf)
	if err == bqueue.ErrConnectionLost {
		return 0, ErrConnectionLost
	}
	return n, nil
}

func (l *InProcLine) Write(buf []byte) (int, error) {
	n, err := l.writeQ.Write(buf)
	if err == bqueue.ErrConnectionLost {
		return n, ErrConnectionLost
	}
	return n, nil
}

func (l *InProcLine) SetOption(opt Option, value time.Duration) error {
	switch opt {
	case ReceiveTimeout:
		l.recvTimeout = value
		l.hasRecvTimeout = value > 0
		return nil
	case SendTimeout:
		l.sendTimeout = value
		return nil
	default:
		return ErrUnsupportedOption
	}
}

// Close disconnects both queues, unblocking any parked reader/writer with
// ErrConnectionLost — spec.md §5: "The in-proc byte queue disconnects
// itself on destruction, unblocking any parked reader/writer."
func (l *InProcLine) Close() error {
	l.readQ.SetConnected(false)
	l.writeQ.SetConnected(false)
	return nil
}

// InProcAcceptor serves one inproc address.
type InProcAcceptor struct {
	addr string
	reg  *inprocRegistry
}

func (a *InProcAcceptor) WaitConnection(timeout time.Duration) (Line, error) {
	a.reg.mu.Lock()
	defer a.reg.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for {
		if hs := a.popLocked(); hs != nil {
			return hs.serverLine, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		waitLocked(a.reg.cond, remaining)
	}
}

func (a *InProcAcceptor) popLocked() *inprocHandshake {
	queue := a.reg.waiting[a.addr]
	if len(queue) == 0 {
		return nil
	}
	hs := queue[0]
	a.reg.waiting[a.addr] = queue[1:]
	return hs
}

func (a *InProcAcceptor) Close() error {
	a.reg.mu.Lock()
	delete(a.reg.listeners, a.addr)
	a.reg.mu.Unlock()
	return nil
}

// waitLocked waits on cond for at most d, re-acquiring reg.mu before
// returning. Built the same way as bqueue's ReadTimeout: a timer
// broadcasts the condition so the waiter re-checks its deadline like any
// other wakeup.
func waitLocked(cond *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, cond.Broadcast)
	defer timer.Stop()
	cond.Wait()
}

// InProcFactory implements Factory for the "inproc" scheme.
type InProcFactory struct {
	reg *inprocRegistry
}

// NewInProcFactory returns a factory bound to the process-wide in-proc
// registry.
func NewInProcFactory() *InProcFactory {
	return &InProcFactory{reg: getRegistry()}
}

func (f *InProcFactory) Scheme() string { return "inproc" }

func (f *InProcFactory) Dial(rest string) (Line, error) {
	f.reg.mu.Lock()
	if !f.reg.listeners[rest] {
		f.reg.mu.Unlock()
		return nil, fmt.Errorf("transport: no inproc listener bound at %q", rest)
	}
	client, server := newInProcPair()
	f.reg.waiting[rest] = append(f.reg.waiting[rest], &inprocHandshake{serverLine: server})
	f.reg.mu.Unlock()
	f.reg.cond.Broadcast()
	return client, nil
}

func (f *InProcFactory) Listen(rest string) (Acceptor, error) {
	f.reg.mu.Lock()
	f.reg.listeners[rest] = true
	f.reg.mu.Unlock()
	return &InProcAcceptor{addr: rest, reg: f.reg}, nil
}
