package batch

import (
	"sync"
	"time"
)

// Scheduler runs a flush at some later point. Schedule replaces any
// callback that has not run yet; Cancel drops it.
type Scheduler interface {
	Schedule(fn func())
	Cancel()
}

// TimerScheduler debounces callbacks with a single-shot timer.
type TimerScheduler struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewTimerScheduler creates a scheduler that runs callbacks delay after the
// last Schedule call. A zero delay runs on the next available tick.
func NewTimerScheduler(delay time.Duration) *TimerScheduler {
	if delay < 0 {
		delay = 0
	}
	return &TimerScheduler{delay: delay}
}

// Schedule stops the pending timer, if any, and starts a new one.
func (s *TimerScheduler) Schedule(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, fn)
}

// Cancel stops the pending timer.
func (s *TimerScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// ManualScheduler holds the latest callback until Fire is called.
type ManualScheduler struct {
	mu        sync.Mutex
	fn        func()
	scheduled int
}

// NewManualScheduler creates an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule stores fn, replacing the previous callback.
func (s *ManualScheduler) Schedule(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
	s.scheduled++
}

// Cancel drops the stored callback.
func (s *ManualScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = nil
}

// Pending reports whether a callback is waiting.
func (s *ManualScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn != nil
}

// Scheduled returns how many times Schedule has been called.
func (s *ManualScheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduled
}

// Fire runs the stored callback on the calling goroutine and reports
// whether there was one.
func (s *ManualScheduler) Fire() bool {
	s.mu.Lock()
	fn := s.fn
	s.fn = nil
	s.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}
