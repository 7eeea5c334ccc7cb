package tracker

import (
	"sync"
	"time"
)

// Scheduler coalesces bursts of edits into a single flush using a
// debounce window. Every Notify resets the countdown; when it elapses
// with no further notifications, the flush callback fires once.
//
// The callback runs on the timer goroutine. It is never invoked
// concurrently with itself as long as callers serialize flush execution
// (the engine guards cycles with its in-flight flag).
type Scheduler struct {
	delay   time.Duration
	flushFn func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewScheduler creates a scheduler that invokes flushFn after delay of
// quiet time following the last Notify.
func NewScheduler(delay time.Duration, flushFn func()) *Scheduler {
	return &Scheduler{
		delay:   delay,
		flushFn: flushFn,
	}
}

// Notify signals that new work exists and resets the debounce countdown.
func (s *Scheduler) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.flushFn)
}

// FlushNow cancels any pending countdown and fires the flush immediately.
func (s *Scheduler) FlushNow() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.flushFn()
}

// Stop cancels any pending flush. Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
