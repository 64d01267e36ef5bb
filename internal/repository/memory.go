package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryRateLimiter is the process-local fixed window limiter used when
// Redis is not configured or unreachable.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	entries map[int64]*rateLimitEntry
	now     func() time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		entries: make(map[int64]*rateLimitEntry),
		now:     time.Now,
	}
}

func (r *MemoryRateLimiter) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[userID]
	if !ok || !now.Before(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.entries[userID] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}

// Prune drops expired windows.
func (r *MemoryRateLimiter) Prune() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, entry := range r.entries {
		if !now.Before(entry.expiresAt) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}
