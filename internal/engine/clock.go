package engine

import (
	"sync"
	"time"
)

// Clock supplies the current time. The engine never calls time.Now directly
// so tests can substitute a manual clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Scheduler is a cancellable, idempotent repeating-task handle driving the
// rest countdown. Start while already running is a no-op, so the engine can
// call it freely without registering duplicate tickers.
type Scheduler interface {
	Start(fn func())
	Stop()
}

// TickerScheduler runs the task once per second on a background goroutine.
type TickerScheduler struct {
	mu   sync.Mutex
	stop chan struct{}
}

// Start begins the 1-second cadence. No-op if already running.
func (s *TickerScheduler) Start(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	stop := make(chan struct{})
	s.stop = stop
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-stop:
				return
			}
		}
	}()
}

// Stop cancels the scheduled task. No-op if not running.
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}
