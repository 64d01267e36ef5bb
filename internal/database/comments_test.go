package database

import (
	"context"
	"testing"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComments(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", "owner@example.com")
	author := createUser(t, db, "Author", "author@example.com")
	item := createItem(t, db, owner.ID, "Drill", "Cordless", true)
	other := createItem(t, db, owner.ID, "Saw", "Hand saw", true)

	first := &models.Comment{ItemID: item.ID, AuthorID: author.ID, Text: "great", Created: time.Now().Add(-time.Hour)}
	require.NoError(t, db.CreateComment(ctx, first))
	second := &models.Comment{ItemID: item.ID, AuthorID: author.ID, Text: "still great"}
	require.NoError(t, db.CreateComment(ctx, second))
	require.NoError(t, db.CreateComment(ctx, &models.Comment{ItemID: other.ID, AuthorID: author.ID, Text: "sharp"}))
	assert.False(t, second.Created.IsZero())

	comments, err := db.GetCommentsByItems(ctx, []int64{item.ID})
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, first.ID, comments[0].ID)
	assert.Equal(t, "Author", comments[0].AuthorName)

	// author name follows renames
	renamed := *author
	renamed.Name = "Renamed"
	require.NoError(t, db.UpdateUser(ctx, &renamed))
	comments, err = db.GetCommentsByItems(ctx, []int64{item.ID, other.ID})
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "Renamed", comments[2].AuthorName)

	err = db.CreateComment(ctx, &models.Comment{ItemID: 999, AuthorID: author.ID, Text: "ghost"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	comments, err = db.GetCommentsByItems(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, comments)
}
