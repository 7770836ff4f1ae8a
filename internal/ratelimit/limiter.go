// Package ratelimit bounds admin login attempts per client identity.
//
// The limiter short-circuits before any credential lookup or hash
// comparison, so a brute-force attempt costs one map lookup rather
// than an Argon2id derivation. State is process-lifetime only; losing
// counters on restart is acceptable.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config contains the rate limiting window settings.
type Config struct {
	// Window is the duration over which attempts are counted.
	Window time.Duration

	// MaxAttempts is the number of attempts allowed within the window.
	// The MaxAttempts+1th attempt is throttled.
	MaxAttempts int
}

// window tracks attempts from one client identity.
type window struct {
	count int
	start time.Time
}

// maxTrackedIdentities caps the attempts map. When exceeded the map is
// reset wholesale - a short bypass window is preferable to unbounded
// memory growth from spoofed identities.
const maxTrackedIdentities = 10000

// Limiter is a per-identity fixed-window attempt counter.
//
// Thread Safety: all methods are safe for concurrent use.
type Limiter struct {
	cfg      Config
	mu       sync.Mutex
	attempts map[string]*window
	now      func() time.Time // overridable for tests
}

// New creates a Limiter with the given configuration.
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:      cfg,
		attempts: make(map[string]*window),
		now:      time.Now,
	}
}

// Allow records an attempt for the identity and reports whether it is
// permitted. When throttled, retryAfter hints how long until the window
// resets.
func (l *Limiter) Allow(identity string) (ok bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.attempts) > maxTrackedIdentities {
		l.attempts = make(map[string]*window)
	}

	now := l.now()
	w, exists := l.attempts[identity]
	if !exists || now.Sub(w.start) >= l.cfg.Window {
		l.attempts[identity] = &window{count: 1, start: now}
		return true, 0
	}

	if w.count >= l.cfg.MaxAttempts {
		return false, w.start.Add(l.cfg.Window).Sub(now)
	}

	w.count++
	return true, 0
}

// Reset clears the counter for an identity (called on successful login).
func (l *Limiter) Reset(identity string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, identity)
}

// Run periodically evicts expired windows until the context is cancelled.
// Without it, identities that never retry would be tracked forever.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.Window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evictExpired()
		}
	}
}

// evictExpired removes windows that have elapsed.
func (l *Limiter) evictExpired() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for identity, w := range l.attempts {
		if now.Sub(w.start) >= l.cfg.Window {
			delete(l.attempts, identity)
		}
	}
}
