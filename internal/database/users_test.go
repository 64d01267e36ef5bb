package database

import (
	"context"
	"testing"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	ann := createUser(t, db, "Ann", "ann@example.com")
	bob := createUser(t, db, "Bob", "bob@example.com")
	assert.NotZero(t, ann.ID)
	assert.NotEqual(t, ann.ID, bob.ID)

	got, err := db.GetUserByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, "ann@example.com", got.Email)

	t.Run("DuplicateEmail", func(t *testing.T) {
		err := db.CreateUser(ctx, &models.User{Name: "Clone", Email: "ann@example.com"})
		assert.ErrorIs(t, err, domain.ErrEmailTaken)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("UpdateToTakenEmail", func(t *testing.T) {
		upd := *bob
		upd.Email = "ann@example.com"
		assert.ErrorIs(t, db.UpdateUser(ctx, &upd), domain.ErrConflict)
	})

	t.Run("Update", func(t *testing.T) {
		upd := *bob
		upd.Name = "Robert"
		require.NoError(t, db.UpdateUser(ctx, &upd))

		got, err := db.GetUserByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "Robert", got.Name)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		err := db.UpdateUser(ctx, &models.User{ID: 999, Name: "x", Email: "x@example.com"})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("List", func(t *testing.T) {
		users, err := db.GetAllUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, ann.ID, users[0].ID)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := db.GetUserByID(ctx, 999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestDeleteUser_Cascades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", "owner@example.com")
	booker := createUser(t, db, "Booker", "booker@example.com")
	item := createItem(t, db, owner.ID, "Drill", "Cordless", true)
	booking := createBooking(t, db, item.ID, booker.ID, hoursFromNow(1), hoursFromNow(2), models.StatusWaiting)

	require.NoError(t, db.DeleteUser(ctx, owner.ID))

	_, err := db.GetItemByID(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	_, err = db.GetBooking(ctx, booking.ID)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	assert.ErrorIs(t, db.DeleteUser(ctx, owner.ID), domain.ErrUserNotFound)
}
