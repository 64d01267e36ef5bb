package repository

import (
	"context"
	"sync"
	"time"

	"shareit/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverRateLimiter uses the primary limiter until it fails, then serves
// from the fallback and retries the primary once per recoveryInterval.
type FailoverRateLimiter struct {
	primary  domain.RateLimiter
	fallback domain.RateLimiter
	logger   *zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	isDown    bool
	lastCheck time.Time
}

func NewFailoverRateLimiter(primary, fallback domain.RateLimiter, logger *zerolog.Logger) *FailoverRateLimiter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverRateLimiter{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *FailoverRateLimiter) usePrimary() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.isDown || r.now().Sub(r.lastCheck) > recoveryInterval
}

func (r *FailoverRateLimiter) markDown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isDown = true
	r.lastCheck = r.now()
}

func (r *FailoverRateLimiter) markUp() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isDown {
		r.logger.Info().Msg("Primary rate limiter recovered")
	}
	r.isDown = false
}

// IsDown reports whether calls are currently served by the fallback.
func (r *FailoverRateLimiter) IsDown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isDown
}

func (r *FailoverRateLimiter) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.logger.Error().Err(err).Msg("Primary rate limiter failed, falling back to memory")
		r.markDown()
	}

	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}
