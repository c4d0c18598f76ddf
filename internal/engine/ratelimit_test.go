package engine

import (
	"testing"
	"time"
)

const (
	testLimit    = 20
	testWindow   = 300 * time.Second
	testCooldown = 600 * time.Second
)

// fakeClock lets tests advance time deterministically.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter() (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(testLimit, testWindow, testCooldown)
	l.now = clock.now
	return l, clock
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	l, clock := newTestLimiter()

	for i := 0; i < testLimit; i++ {
		allowed, _ := l.Allow(42)
		if !allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
		clock.advance(time.Second)
	}

	allowed, retryAfter := l.Allow(42)
	if allowed {
		t.Fatalf("request %d allowed, want denied", testLimit+1)
	}
	if retryAfter <= 0 {
		t.Errorf("retryAfter = %v, want > 0", retryAfter)
	}
}

func TestLimiterRetryAfterDecreases(t *testing.T) {
	l, clock := newTestLimiter()

	for i := 0; i < testLimit; i++ {
		l.Allow(7)
	}

	_, first := l.Allow(7)
	clock.advance(30 * time.Second)
	_, second := l.Allow(7)

	if second >= first {
		t.Errorf("retryAfter did not decrease: first=%v second=%v", first, second)
	}
	if want := first - 30*time.Second; second != want {
		t.Errorf("second retryAfter = %v, want %v", second, want)
	}
}

func TestLimiterCooldownAnchoredToWindowStart(t *testing.T) {
	l, clock := newTestLimiter()

	// Burn the budget over 100s, hitting the limit well inside the window.
	for i := 0; i < testLimit; i++ {
		l.Allow(7)
		clock.advance(5 * time.Second)
	}

	// 100s elapsed from window start; remaining cooldown is C - elapsed.
	_, retryAfter := l.Allow(7)
	if want := testCooldown - 100*time.Second; retryAfter != want {
		t.Errorf("retryAfter = %v, want %v", retryAfter, want)
	}

	// Once C has elapsed from the original window start, the next call
	// flips back to allowed with a fresh window.
	clock.advance(testCooldown - 100*time.Second)
	allowed, _ := l.Allow(7)
	if !allowed {
		t.Fatal("expected allowed after cooldown elapsed")
	}
	allowed, _ = l.Allow(7)
	if !allowed {
		t.Fatal("expected second request of fresh window allowed")
	}
}

func TestLimiterRollingReset(t *testing.T) {
	l, clock := newTestLimiter()

	for i := 0; i < 5; i++ {
		l.Allow(9)
	}

	// Window expires without the limit having been reached: the counter
	// restarts at 1 rather than accumulating.
	clock.advance(testWindow + time.Second)
	allowed, _ := l.Allow(9)
	if !allowed {
		t.Fatal("expected allowed after window expiry")
	}

	l.mu.Lock()
	count := l.users[9].count
	l.mu.Unlock()
	if count != 1 {
		t.Errorf("count after reset = %d, want 1", count)
	}
}

func TestLimiterUsersIndependent(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < testLimit; i++ {
		l.Allow(1)
	}
	if allowed, _ := l.Allow(1); allowed {
		t.Fatal("user 1 should be denied")
	}
	if allowed, _ := l.Allow(2); !allowed {
		t.Fatal("user 2 should be unaffected by user 1's denial")
	}
}

func TestSplitRetryAfter(t *testing.T) {
	tests := []struct {
		d    time.Duration
		mins int
		secs int
	}{
		{590 * time.Second, 9, 50},
		{60 * time.Second, 1, 0},
		{59 * time.Second, 0, 59},
		{0, 0, 0},
	}
	for _, tt := range tests {
		mins, secs := SplitRetryAfter(tt.d)
		if mins != tt.mins || secs != tt.secs {
			t.Errorf("SplitRetryAfter(%v) = %d, %d, want %d, %d", tt.d, mins, secs, tt.mins, tt.secs)
		}
	}
}
