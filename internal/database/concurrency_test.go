package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentDecideBooking(t *testing.T) {
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "concurrency.db"), &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	owner := createUser(t, db, "Owner", "owner@example.com")
	booker := createUser(t, db, "Booker", "booker@example.com")
	item := createItem(t, db, owner.ID, "Drill", "Cordless", true)
	booking := createBooking(t, db, item.ID, booker.ID, hoursFromNow(1), hoursFromNow(2), models.StatusWaiting)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			status := models.StatusApproved
			if id%2 == 1 {
				status = models.StatusRejected
			}
			results <- db.DecideBooking(ctx, booking.ID, status)
		}(i)
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrBookingDecided), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, successCount, "a booking must be decided exactly once")

	view, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.NotEqual(t, models.StatusWaiting, view.Status)
	assert.Equal(t, int64(2), view.Version)
}
