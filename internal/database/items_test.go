package database

import (
	"context"
	"testing"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemsCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", "owner@example.com")
	item := createItem(t, db, owner.ID, "Drill", "Cordless drill", true)

	got, err := db.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Drill", got.Name)
	assert.Equal(t, owner.ID, got.OwnerID)
	assert.True(t, got.IsAvailable())
	assert.Nil(t, got.RequestID)

	got.Available = models.Ptr(false)
	got.Description = "Broken drill"
	require.NoError(t, db.UpdateItem(ctx, got))

	got, err = db.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, got.IsAvailable())
	assert.Equal(t, "Broken drill", got.Description)

	_, err = db.GetItemByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	err = db.UpdateItem(ctx, &models.Item{ID: 999, Available: models.Ptr(true)})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestCreateItem_UnknownOwner(t *testing.T) {
	db := setupTestDB(t)
	err := db.CreateItem(context.Background(), &models.Item{OwnerID: 42, Name: "x", Description: "y", Available: models.Ptr(true)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetItemsByOwner_Paged(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", "owner@example.com")
	other := createUser(t, db, "Other", "other@example.com")
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		createItem(t, db, owner.ID, name, "desc", true)
	}
	createItem(t, db, other.ID, "Foreign", "desc", true)

	all, err := db.GetItemsByOwner(ctx, owner.ID, models.Unpaged)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "A", all[0].Name)

	// from=3,size=2 starts at the second page
	page, err := db.GetItemsByOwner(ctx, owner.ID, models.Page{From: 3, Size: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "C", page[0].Name)
	assert.Equal(t, "D", page[1].Name)
}

func TestSearchItems(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", "owner@example.com")
	drill := createItem(t, db, owner.ID, "Дрель", "Аккумуляторная ДРЕЛЬ", true)
	createItem(t, db, owner.ID, "Hammer", "Heavy", true)
	createItem(t, db, owner.ID, "Old drill", "does not work", false)
	saw := createItem(t, db, owner.ID, "Saw", "Cuts like a DRILL would not", true)
	createItem(t, db, owner.ID, "Percent", "100% literal_match", true)

	found, err := db.SearchItems(ctx, "дРеЛь", models.Unpaged)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, drill.ID, found[0].ID)

	found, err = db.SearchItems(ctx, "drill", models.Unpaged)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, saw.ID, found[0].ID)

	found, err = db.SearchItems(ctx, "   ", models.Unpaged)
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = db.SearchItems(ctx, "0%", models.Unpaged)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = db.SearchItems(ctx, "l_m", models.Unpaged)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	// underscore is literal, not a single-character wildcard
	found, err = db.SearchItems(ctx, "a_", models.Unpaged)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestGetItemsByRequests(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	requester := createUser(t, db, "Requester", "req@example.com")
	owner := createUser(t, db, "Owner", "owner@example.com")

	req := &models.ItemRequest{RequesterID: requester.ID, Description: "need a ladder"}
	require.NoError(t, db.CreateRequest(ctx, req))

	ladder := &models.Item{OwnerID: owner.ID, Name: "Ladder", Description: "3m", Available: models.Ptr(true), RequestID: &req.ID}
	require.NoError(t, db.CreateItem(ctx, ladder))
	createItem(t, db, owner.ID, "Unrelated", "desc", true)

	items, err := db.GetItemsByRequests(ctx, []int64{req.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ladder.ID, items[0].ID)
	require.NotNil(t, items[0].RequestID)
	assert.Equal(t, req.ID, *items[0].RequestID)

	items, err = db.GetItemsByRequests(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, items)

	bad := &models.Item{OwnerID: owner.ID, Name: "x", Description: "y", Available: models.Ptr(true), RequestID: models.Ptr(int64(999))}
	assert.ErrorIs(t, db.CreateItem(ctx, bad), domain.ErrNotFound)
}
