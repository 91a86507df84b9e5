package supervisor

import (
	"log"
	"sync"
	"time"
)

// Idle calls shutdown once no connection has been live for the grace
// interval. A new connection inside the interval disarms it. A zero
// grace disables the policy.
type Idle struct {
	grace    time.Duration
	shutdown func()

	mu    sync.Mutex
	live  int
	gen   uint64
	timer *time.Timer
	fired bool
}

func NewIdle(grace time.Duration, shutdown func()) *Idle {
	return &Idle{grace: grace, shutdown: shutdown}
}

// Connected records a new live connection.
func (s *Idle) Connected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live++
	s.disarm()
}

// Disconnected records a departure and arms the timer when none remain.
func (s *Idle) Disconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live > 0 {
		s.live--
	}
	if s.live == 0 && s.grace > 0 && !s.fired {
		s.disarm()
		gen := s.gen
		s.timer = time.AfterFunc(s.grace, func() { s.expire(gen) })
	}
}

// Armed reports whether a shutdown is pending.
func (s *Idle) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Stop disarms any pending shutdown.
func (s *Idle) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarm()
}

// disarm invalidates the current timer; a callback already in flight sees
// a stale generation and does nothing.
func (s *Idle) disarm() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Idle) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.fired {
		s.mu.Unlock()
		return
	}
	s.fired = true
	s.timer = nil
	s.mu.Unlock()

	log.Printf("no connections for %s, shutting down", s.grace)
	s.shutdown()
}
