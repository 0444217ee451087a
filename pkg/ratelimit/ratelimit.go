// Package ratelimit provides per-conversation sliding-window admission
// control for inbound events.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultLimit is the default number of admissions per window
	DefaultLimit = 5
	// DefaultWindow is the default window length
	DefaultWindow = 60 * time.Second
)

// Limiter admits at most N events per conversation within a rolling window.
// State is process-lifetime only; a restart resets all windows. The window is
// deliberately approximate: bursts straddling the window boundary can admit
// slightly above N.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[int64][]time.Time
	now    func() time.Time
}

// Option is a functional option for Limiter configuration
type Option func(*Limiter)

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter admitting limit events per window length. Non-positive
// parameters fall back to the defaults.
func New(limit int, window time.Duration, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}

	l := &Limiter{
		limit:  limit,
		window: window,
		hits:   make(map[int64][]time.Time),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow checks admission for the conversation: timestamps older than the
// window are pruned, and the event is admitted and recorded only when fewer
// than the limit remain.
func (l *Limiter) Allow(conversationID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.hits[conversationID][:0]
	for _, ts := range l.hits[conversationID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.limit {
		l.hits[conversationID] = recent
		return false
	}

	l.hits[conversationID] = append(recent, now)
	return true
}
