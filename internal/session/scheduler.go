package session

import (
	"sync"
	"time"
)

// Scheduler owns the timed effects tied to a session's lifetime: the
// test-mode timer tick and the delayed game-over transition. Effects are
// named so a reschedule replaces its predecessor, and CancelAll is the
// teardown guarantee that no pending callback outlives its session.
type Scheduler struct {
	mu       sync.Mutex
	timers   map[string]*time.Timer
	tickStop chan struct{}
}

func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[string]*time.Timer)}
}

// Schedule runs fn once after d, replacing any pending effect with the
// same name. fn runs on a timer goroutine; the caller is responsible for
// re-checking state before mutating anything.
func (s *Scheduler) Schedule(name string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[name]; ok {
		t.Stop()
	}
	s.timers[name] = time.AfterFunc(d, fn)
}

// Cancel stops the named effect if it has not fired yet.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[name]; ok {
		t.Stop()
		delete(s.timers, name)
	}
}

// StartTicker runs fn every d until StopTicker or CancelAll. Only one
// ticker exists at a time; starting a new one stops the old one.
func (s *Scheduler) StartTicker(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTickerLocked()

	stop := make(chan struct{})
	s.tickStop = stop

	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// StopTicker stops the running ticker, if any.
func (s *Scheduler) StopTicker() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTickerLocked()
}

func (s *Scheduler) stopTickerLocked() {
	if s.tickStop != nil {
		close(s.tickStop)
		s.tickStop = nil
	}
}

// CancelAll stops every pending effect. Called on session teardown so a
// superseded session can never be mutated by a stale callback.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
	s.stopTickerLocked()
}
