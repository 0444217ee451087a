package logging

import (
	"sync"
	"time"
)

// DefaultThrottleWindow is the cooldown applied to repeated identical log keys
const DefaultThrottleWindow = time.Minute

// Throttle suppresses repeated log output for the same key within a cooldown
// window. It backs the handler-boundary policy of logging a recurring failure
// (same error code, same unauthorized source) once per window instead of once
// per event.
type Throttle struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

// NewThrottle creates a Throttle with the given cooldown window. A zero or
// negative window falls back to DefaultThrottleWindow.
func NewThrottle(window time.Duration) *Throttle {
	if window <= 0 {
		window = DefaultThrottleWindow
	}
	return &Throttle{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Allow reports whether a log entry for the key should be emitted now. The
// first call for a key always allows; subsequent calls within the window are
// suppressed.
func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.seen[key]; ok && now.Sub(last) < t.window {
		return false
	}

	// Opportunistically drop expired entries to keep the map bounded
	for k, ts := range t.seen {
		if now.Sub(ts) >= t.window {
			delete(t.seen, k)
		}
	}

	t.seen[key] = now
	return true
}
