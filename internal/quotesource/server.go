// Package quotesource implements the tick-distribution server and
// reconnecting client from spec.md §4.5-4.6: subscription filtering,
// push and pull (credit-based) flow control, and the framed wire
// protocol built on internal/transport and internal/wire.
package quotesource

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rishav/goldmine/internal/metrics"
	"github.com/rishav/goldmine/internal/model"
	"github.com/rishav/goldmine/internal/transport"
)

// acceptPollInterval bounds the acceptor's WaitConnection call so the
// server notices its shutdown flag promptly (spec.md §5: "100-200 ms").
const acceptPollInterval = 150 * time.Millisecond

// Server owns an acceptor and the list of sessions it has spawned
// (spec.md §4.5). One incoming_tick fan-out call walks every session's
// filter and publishes to the matching ones.
type Server struct {
	acc     transport.Acceptor
	logger  *zap.Logger
	metrics *metrics.Registry

	mu       sync.Mutex
	sessions map[string]*Session
	running  bool

	wg sync.WaitGroup
}

// SetMetrics attaches a metrics registry; every session spawned after
// this call reports through it. Safe to call before Serve.
func (s *Server) SetMetrics(m *metrics.Registry) {
	s.mu.Lock()
	s.metrics = m
	s.mu.Unlock()
}

// NewServer binds addr (an "inproc://", "local://", or "tcp://" URI)
// and returns a Server ready to Serve.
func NewServer(reg *transport.Registry, addr string, logger *zap.Logger) (*Server, error) {
	acc, err := reg.Listen(addr)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		acc:      acc,
		logger:   logger,
		sessions: make(map[string]*Session),
	}, nil
}

// Serve runs the acceptor loop until Stop is called. Intended to be run
// on its own goroutine (spec.md §5's "Acceptor thread").
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
			s.logger.Warn("quotesource accept failed", zap.Error(err))
			continue
		}
		if line == nil {
			continue // plain poll timeout
		}

		nextID++
		id := sessionIDFor(nextID)

		s.mu.Lock()
		m := s.metrics
		sess := newSession(id, line, s.logger, m)
		s.sessions[id] = sess
		if m != nil {
			m.QuoteSourceSessions.Set(float64(len(s.sessions)))
		}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sess.run()
			s.removeSession(id)
		}()
	}
}

func sessionIDFor(n uint64) string {
	return fmt.Sprintf("qs-%x", n)
}

func (s *Server) removeSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	if s.metrics != nil {
		s.metrics.QuoteSourceSessions.Set(float64(len(s.sessions)))
	}
}

// Publish fans tick out to every session whose filter accepts ticker
// (spec.md §4.5 "incoming_tick"). This is the server's single producer
// path into each session's pull-mode queue.
func (s *Server) Publish(ticker string, tick model.Tick) {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.publish(ticker, tick)
	}
}

// SessionCount returns the number of currently connected sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Stop signals the acceptor loop to exit, closes every session, and
// waits for their goroutines to finish.
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
	s.acc.Close()
}
