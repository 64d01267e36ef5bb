package worker

import (
	"math"
	"time"
)

// RetryPolicy is an exponential backoff: InitialDelay * BackoffFactor^(attempt-1),
// capped at MaxDelay. MaxRetries counts delivery attempts, not retries.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns the wait before the given attempt (1-based).
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	attempt = max(attempt, 1)
	initial := r.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	d := time.Duration(float64(initial) * math.Pow(factor, float64(attempt-1)))
	if r.MaxDelay > 0 && (d > r.MaxDelay || d <= 0) {
		return r.MaxDelay
	}
	if d <= 0 {
		return time.Second
	}
	return d
}
