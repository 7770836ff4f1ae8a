package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// tokenBytes is the number of random bytes in an opaque session token (256-bit).
const tokenBytes = 32

// entry holds one server-side session.
type entry struct {
	username  string
	expiresAt time.Time
}

// MemoryAuthority keeps opaque session tokens in process memory.
// Sessions do not survive a restart, which for a single-door controller
// is acceptable: admins simply log in again.
//
// Thread Safety: all methods are safe for concurrent use.
type MemoryAuthority struct {
	ttl      time.Duration
	mu       sync.Mutex
	sessions map[string]entry
	now      func() time.Time // overridable for tests
}

// NewMemory creates a server-side session authority with the given lifetime.
func NewMemory(ttl time.Duration) *MemoryAuthority {
	return &MemoryAuthority{
		ttl:      ttl,
		sessions: make(map[string]entry),
		now:      time.Now,
	}
}

// Issue creates a cryptographically random session token for the username.
func (a *MemoryAuthority) Issue(username string) (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	token := hex.EncodeToString(b)

	a.mu.Lock()
	a.sessions[token] = entry{
		username:  username,
		expiresAt: a.now().Add(a.ttl),
	}
	a.mu.Unlock()

	return token, nil
}

// Authorize resolves a session token to its username.
// Expired sessions are removed on sight.
func (a *MemoryAuthority) Authorize(token string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.sessions[token]
	if !ok {
		return "", ErrUnauthorized
	}

	if !a.now().Before(e.expiresAt) {
		delete(a.sessions, token)
		return "", ErrUnauthorized
	}

	return e.username, nil
}

// Revoke removes a session. Idempotent.
func (a *MemoryAuthority) Revoke(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// Run periodically removes expired sessions until the context is cancelled.
func (a *MemoryAuthority) Run(ctx context.Context) {
	ticker := time.NewTicker(a.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.evictExpired()
		}
	}
}

// evictExpired removes sessions past their expiry.
func (a *MemoryAuthority) evictExpired() {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	for token, e := range a.sessions {
		if !now.Before(e.expiresAt) {
			delete(a.sessions, token)
		}
	}
}
