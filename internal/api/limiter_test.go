package api

import (
	"fmt"
	"testing"
	"time"

	"shareit/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestKeyLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newKeyLimiter(config.APIRateLimitConfig{RPS: 1, Burst: 2})
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("gateway"))
	assert.True(t, l.allow("gateway"))
	assert.False(t, l.allow("gateway"))
	assert.True(t, l.allow("other"), "buckets are per key")

	now = now.Add(time.Second)
	assert.True(t, l.allow("gateway"), "token refilled")
}

func TestKeyLimiter_DefaultBurst(t *testing.T) {
	l := newKeyLimiter(config.APIRateLimitConfig{RPS: 0.001})
	for i := 0; i < defaultBurst; i++ {
		assert.True(t, l.allow("k"))
	}
	assert.False(t, l.allow("k"))
}

func TestKeyLimiter_EvictsIdleKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newKeyLimiter(config.APIRateLimitConfig{RPS: 10})
	l.now = func() time.Time { return now }

	for i := 0; i < maxTrackedKeys; i++ {
		l.allow(fmt.Sprintf("10.0.0.%d", i))
	}
	assert.Equal(t, maxTrackedKeys, l.size())

	now = now.Add(keyIdleTTL + time.Second)
	l.allow("fresh")
	assert.Equal(t, 1, l.size())
}
