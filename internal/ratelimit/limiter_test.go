package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// testLimiter creates a limiter with a controllable clock.
func testLimiter(cfg Config) (*Limiter, *time.Time) {
	l := New(cfg)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllow_WithinLimit(t *testing.T) {
	l, _ := testLimiter(Config{Window: 15 * time.Minute, MaxAttempts: 5})

	for i := 1; i <= 5; i++ {
		ok, _ := l.Allow("10.0.0.1")
		if !ok {
			t.Fatalf("attempt %d should be allowed", i)
		}
	}
}

func TestAllow_ThrottlesSixthAttempt(t *testing.T) {
	l, _ := testLimiter(Config{Window: 15 * time.Minute, MaxAttempts: 5})

	for i := 1; i <= 5; i++ {
		if ok, _ := l.Allow("10.0.0.1"); !ok {
			t.Fatalf("attempt %d should be allowed", i)
		}
	}

	ok, retryAfter := l.Allow("10.0.0.1")
	if ok {
		t.Fatal("attempt 6 should be throttled")
	}
	if retryAfter != 15*time.Minute {
		t.Errorf("retryAfter = %v, want 15m", retryAfter)
	}
}

func TestAllow_WindowElapses(t *testing.T) {
	l, now := testLimiter(Config{Window: 15 * time.Minute, MaxAttempts: 5})

	for i := 1; i <= 5; i++ {
		l.Allow("10.0.0.1")
	}
	if ok, _ := l.Allow("10.0.0.1"); ok {
		t.Fatal("attempt 6 should be throttled")
	}

	// Advance past the window - the identity gets a fresh allowance.
	*now = now.Add(15*time.Minute + time.Second)

	if ok, _ := l.Allow("10.0.0.1"); !ok {
		t.Error("attempt after window elapses should be allowed")
	}
}

func TestAllow_IdentitiesIndependent(t *testing.T) {
	l, _ := testLimiter(Config{Window: 15 * time.Minute, MaxAttempts: 2})

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.1")
	if ok, _ := l.Allow("10.0.0.1"); ok {
		t.Fatal("first identity should be throttled")
	}

	if ok, _ := l.Allow("10.0.0.2"); !ok {
		t.Error("second identity should be unaffected")
	}
}

func TestReset_ClearsCounter(t *testing.T) {
	l, _ := testLimiter(Config{Window: 15 * time.Minute, MaxAttempts: 2})

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.1")
	l.Reset("10.0.0.1")

	if ok, _ := l.Allow("10.0.0.1"); !ok {
		t.Error("attempt after Reset should be allowed")
	}
}

func TestEvictExpired(t *testing.T) {
	l, now := testLimiter(Config{Window: 15 * time.Minute, MaxAttempts: 5})

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")

	*now = now.Add(16 * time.Minute)
	l.evictExpired()

	l.mu.Lock()
	remaining := len(l.attempts)
	l.mu.Unlock()

	if remaining != 0 {
		t.Errorf("expected 0 tracked identities after eviction, got %d", remaining)
	}
}

func TestAllow_ConcurrentAccess(t *testing.T) {
	l := New(Config{Window: time.Minute, MaxAttempts: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				l.Allow("shared-identity")
			}
		}()
	}
	wg.Wait()

	l.mu.Lock()
	count := l.attempts["shared-identity"].count
	l.mu.Unlock()

	if count != 500 {
		t.Errorf("count = %d, want 500", count)
	}
}
