package services

import (
	"sync"
	"testing"
	"time"
)

func fixedClock(at time.Time) Clock {
	return func() time.Time { return at }
}

func TestSessionTimerRemainingAtStart(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	timer := NewSessionTimer(start, time.Hour, fixedClock(start))

	if got := timer.Remaining(); got != time.Hour {
		t.Fatalf("expected full hour remaining, got %v", got)
	}
	if timer.Expired() {
		t.Fatal("timer should not be expired at start")
	}
}

func TestSessionTimerRemainingDerivedFromClock(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := start

	timer := NewSessionTimer(start, time.Hour, func() time.Time { return now })

	now = start.Add(25 * time.Minute)
	if got := timer.Remaining(); got != 35*time.Minute {
		t.Fatalf("expected 35m remaining, got %v", got)
	}

	// A consumer that slept past several ticks still reads the right value
	now = start.Add(59 * time.Minute)
	if got := timer.Remaining(); got != time.Minute {
		t.Fatalf("expected 1m remaining, got %v", got)
	}
}

func TestSessionTimerExpiryBoundary(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := start

	timer := NewSessionTimer(start, time.Hour, func() time.Time { return now })

	now = start.Add(time.Hour - time.Second)
	if timer.Expired() {
		t.Fatal("timer expired one second early")
	}

	now = start.Add(time.Hour)
	if !timer.Expired() {
		t.Fatal("timer should be expired exactly at start+duration")
	}
	if got := timer.Remaining(); got != 0 {
		t.Fatalf("expected 0 remaining after expiry, got %v", got)
	}

	now = start.Add(2 * time.Hour)
	if !timer.Expired() {
		t.Fatal("expired must stay true once past the deadline")
	}
}

func TestSessionTimerSingleInterval(t *testing.T) {
	start := time.Now()
	timer := NewSessionTimer(start, time.Hour, nil)

	timer.Run(time.Millisecond, func(time.Duration, bool) {})
	if !timer.Running() {
		t.Fatal("expected interval to be running")
	}

	// Restarting replaces the previous interval instead of stacking
	timer.Run(time.Millisecond, func(time.Duration, bool) {})
	if !timer.Running() {
		t.Fatal("expected interval to still be running after restart")
	}

	timer.Stop()
	if timer.Running() {
		t.Fatal("expected interval stopped")
	}

	// Stop is idempotent
	timer.Stop()
}

func TestSessionTimerStopsFromCallback(t *testing.T) {
	start := time.Now().Add(-2 * time.Hour)
	timer := NewSessionTimer(start, time.Hour, nil)

	var mu sync.Mutex
	ticks := 0
	timer.Run(time.Millisecond, func(remaining time.Duration, expired bool) {
		mu.Lock()
		ticks++
		mu.Unlock()
		if expired {
			timer.Stop()
		}
	})

	deadline := time.Now().Add(time.Second)
	for timer.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if timer.Running() {
		t.Fatal("expected the interval to cancel itself after the expired tick")
	}

	// No further ticks after the callback stopped the interval
	mu.Lock()
	seen := ticks
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	final := ticks
	mu.Unlock()
	if final != seen {
		t.Fatalf("ticks kept firing after stop: %d then %d", seen, final)
	}
}

func TestSessionTimerDeliversTicks(t *testing.T) {
	start := time.Now().Add(-2 * time.Hour)
	timer := NewSessionTimer(start, time.Hour, nil)

	ticks := make(chan bool, 1)
	timer.Run(5*time.Millisecond, func(remaining time.Duration, expired bool) {
		select {
		case ticks <- expired:
		default:
		}
	})
	defer timer.Stop()

	select {
	case expired := <-ticks:
		if !expired {
			t.Fatal("expected expired tick for a timer past its deadline")
		}
	case <-time.After(time.Second):
		t.Fatal("no tick delivered within a second")
	}
}
