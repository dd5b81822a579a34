// Package ratelimit implements a fixed-window, epoch-aligned attempt
// limiter for client-side actions such as login and signup.
//
// Windows are aligned to absolute time (floor(now/window)), not to the
// first call, so a burst straddling a window boundary can exceed the
// nominal budget. That boundary behavior matches the deployed dashboard
// and is kept as-is.
package ratelimit

import (
	"strconv"
	"sync"
	"time"
)

type window struct {
	count     int
	resetTime time.Time
}

// Limiter tracks per-action attempt counts in process-local memory.
// State is lost when the process exits; enforcement is deliberately
// best-effort and single-client.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// New creates an empty limiter using the wall clock.
func New() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// NewWithClock creates a limiter with an injected clock. Tests use this to
// drive window expiry deterministically.
func NewWithClock(now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		windows: make(map[string]*window),
		now:     now,
	}
}

// Allow reports whether one more attempt at action fits within limit per
// windowDur. Counting windows are keyed by action plus the epoch-aligned
// bucket index.
//
// Counting is check-then-increment: exactly limit calls pass within one
// bucket and the next is refused. A stale entry whose reset time has
// passed is deleted and that call passes without counting. Callers rely on
// these exact semantics; do not "fix" them here.
func (l *Limiter) Allow(action string, limit int, windowDur time.Duration) bool {
	now := l.now()
	key := action + "_" + strconv.FormatInt(now.UnixMilli()/windowDur.Milliseconds(), 10)

	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.windows[key]
	if !ok {
		current = &window{count: 0, resetTime: now.Add(windowDur)}
	}

	if now.After(current.resetTime) {
		delete(l.windows, key)
		return true
	}

	if current.count >= limit {
		return false
	}

	current.count++
	l.windows[key] = current
	return true
}

// Reset drops all tracked windows. Used when a fresh budget is wanted
// immediately, e.g. after a successful credential change in tests.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.windows = make(map[string]*window)
}
