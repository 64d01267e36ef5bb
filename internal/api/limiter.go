package api

import (
	"sync"
	"time"

	"shareit/internal/config"

	"golang.org/x/time/rate"
)

const (
	defaultBurst = 5
	// ключи по remote addr копятся, поэтому старые вычищаем
	maxTrackedKeys = 1024
	keyIdleTTL     = 10 * time.Minute
)

type keyEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// keyLimiter keeps one token bucket per client key (API key or remote host).
type keyLimiter struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]*keyEntry
}

func newKeyLimiter(cfg config.APIRateLimitConfig) *keyLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	return &keyLimiter{
		rps:     rate.Limit(cfg.RPS),
		burst:   burst,
		now:     time.Now,
		entries: make(map[string]*keyEntry),
	}
}

func (l *keyLimiter) allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		if len(l.entries) >= maxTrackedKeys {
			l.pruneLocked(now.Add(-keyIdleTTL))
		}
		e = &keyEntry{lim: rate.NewLimiter(l.rps, l.burst)}
		l.entries[key] = e
	}
	e.seen = now
	l.mu.Unlock()

	return e.lim.AllowN(now, 1)
}

func (l *keyLimiter) pruneLocked(before time.Time) {
	for k, e := range l.entries {
		if e.seen.Before(before) {
			delete(l.entries, k)
		}
	}
}

func (l *keyLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
