package scan

import (
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler owns the single repeating scan timer.
type Scheduler interface {
	// Start arms the timer, stopping any timer that is already armed.
	Start(interval time.Duration, onTick func())

	// Stop disarms the timer. Calling Stop when nothing is armed is a no-op.
	Stop()

	// Running reports whether a timer is armed.
	Running() bool
}

// TickerScheduler is a Scheduler backed by time.Ticker.
// Each armed timer runs its ticks sequentially on one goroutine, so onTick
// never overlaps itself. Stop does not wait for an in-progress tick;
// callers drop late ticks with a generation check.
type TickerScheduler struct {
	mu   sync.Mutex
	stop chan struct{}
	live atomic.Int32
}

// NewTickerScheduler creates a disarmed scheduler.
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

// Start arms a new timer.
func (s *TickerScheduler) Start(interval time.Duration, onTick func()) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	stop := make(chan struct{})
	s.stop = stop

	s.live.Add(1)
	go func() {
		defer s.live.Add(-1)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// Stop may race with a ready tick; prefer stop.
				select {
				case <-stop:
					return
				default:
				}
				onTick()
			}
		}
	}()
}

// Stop disarms the timer.
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *TickerScheduler) stopLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// Running reports whether a timer is armed.
func (s *TickerScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Live returns the number of timer goroutines that have not exited yet.
func (s *TickerScheduler) Live() int {
	return int(s.live.Load())
}

// Clock is the time source for one-shot delays (resume and post-selection
// grace windows) and debounce windows.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable one-shot timer.
type Timer interface {
	Stop() bool
}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

var _ Scheduler = (*TickerScheduler)(nil)
