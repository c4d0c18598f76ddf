package engine

import (
	"sync"
	"time"
)

// userWindow is the per-user counting state. Two fields on purpose:
// the cooldown is derived from windowStart, not tracked separately.
type userWindow struct {
	windowStart time.Time
	count       int
}

// Limiter enforces a sliding-window rate limit with a cooldown penalty.
// At most `count` requests per `window`; once the limit is hit the user
// stays denied until `cooldown` has elapsed from the window start.
// State is process-lifetime only and never persisted.
type Limiter struct {
	mu     sync.Mutex
	users  map[int64]*userWindow
	limit  int
	window time.Duration
	cool   time.Duration
	now    func() time.Time
}

// NewLimiter creates a limiter permitting `limit` requests per `window`,
// with a `cooldown` penalty anchored to the window start.
func NewLimiter(limit int, window, cooldown time.Duration) *Limiter {
	return &Limiter{
		users:  make(map[int64]*userWindow),
		limit:  limit,
		window: window,
		cool:   cooldown,
		now:    time.Now,
	}
}

// Allow reports whether the user may make a request now. When denied,
// retryAfter is the remaining cooldown. Checked before any outbound
// fetch so the penalty model is independent of upstream latency.
func (l *Limiter) Allow(userID int64) (allowed bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	u, ok := l.users[userID]
	if !ok {
		l.users[userID] = &userWindow{windowStart: now, count: 1}
		IncrRateChecks()
		return true, 0
	}

	elapsed := now.Sub(u.windowStart)

	// Rolling reset: stale window discarded wholesale, never merged.
	if elapsed > l.window {
		u.windowStart = now
		u.count = 1
		IncrRateChecks()
		return true, 0
	}

	if u.count >= l.limit {
		remaining := l.cool - elapsed
		if remaining <= 0 {
			u.windowStart = now
			u.count = 1
			IncrRateChecks()
			return true, 0
		}
		IncrRateDenials()
		return false, remaining
	}

	u.count++
	IncrRateChecks()
	return true, 0
}

// SplitRetryAfter breaks a cooldown duration into whole minutes and
// leftover seconds for display.
func SplitRetryAfter(d time.Duration) (minutes, seconds int) {
	total := int(d.Seconds())
	return total / 60, total % 60
}
