package game

import (
	"context"
	"log"
	"sync"
	"time"
)

// Session owns an Engine behind a mutex so HTTP handlers and the timer loop
// never interleave inside an engine call.
type Session struct {
	mu       sync.Mutex
	engine   *Engine
	clock    Clock
	interval time.Duration
}

// NewSession wraps engine. interval is how often Run polls the clock.
func NewSession(engine *Engine, clock Clock, interval time.Duration) *Session {
	if interval <= 0 {
		interval = max(engine.MinTickInterval()/2, time.Millisecond)
	}
	return &Session{engine: engine, clock: clock, interval: interval}
}

// Do runs fn with exclusive access to the engine.
func (s *Session) Do(fn func(e *Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.engine)
}

// Snapshot returns a detached copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// Step advances the engine to the clock's current time.
func (s *Session) Step() bool {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Advance(now)
}

// Run is the driver loop. It blocks until ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	log.Printf("Driver: polling every %s (min tick %s)", s.interval, s.engine.MinTickInterval())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Driver: stopped")
			return
		case <-ticker.C:
			s.Step()
		}
	}
}
