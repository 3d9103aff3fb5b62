package services

import (
	"sync"
	"time"
)

// Clock abstracts wall-clock reads so session logic is testable with fixed
// times. A nil Clock means time.Now.
type Clock func() time.Time

// SessionTimer tracks time remaining until an automatic state transition
// (walking budget, chat expiry). Remaining time is always re-derived from the
// stored start time and the clock — never decremented by ticks — so a
// suspended and resumed consumer recomputes the correct value with no drift.
type SessionTimer struct {
	start    time.Time
	duration time.Duration
	clock    Clock

	mu   sync.Mutex
	stop chan struct{}
}

func NewSessionTimer(start time.Time, duration time.Duration, clock Clock) *SessionTimer {
	if clock == nil {
		clock = time.Now
	}
	return &SessionTimer{start: start, duration: duration, clock: clock}
}

// Remaining is the time left until expiry as of now, floored at zero.
func (t *SessionTimer) Remaining() time.Duration {
	remaining := t.start.Add(t.duration).Sub(t.clock())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether now >= start + duration. Monotonic in now.
func (t *SessionTimer) Expired() bool {
	return !t.clock().Before(t.start.Add(t.duration))
}

// Run starts a recurring callback delivering the freshly derived remaining
// time and expiry flag every interval. Starting again cancels the previous
// interval first: at most one interval is live per timer.
func (t *SessionTimer) Run(interval time.Duration, fn func(remaining time.Duration, expired bool)) {
	t.mu.Lock()
	if t.stop != nil {
		close(t.stop)
	}
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// A Stop issued from inside fn wins over a pending tick.
				select {
				case <-stop:
					return
				default:
				}
				fn(t.Remaining(), t.Expired())
			}
		}
	}()
}

// Stop deterministically cancels the recurring callback. Safe to call when
// no interval is running.
func (t *SessionTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

// Running reports whether an interval is currently live.
func (t *SessionTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}
