package service

import (
	"testing"
	"time"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCommentService_AddComment(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Owner", "owner@example.com")
	booker := f.user("Booker", "booker@example.com")
	item := f.item(owner.ID, "Drill", true)

	_, err := f.comments.AddComment(f.ctx, booker.ID, item.ID, "too early")
	assert.ErrorIs(t, err, domain.ErrInvalid, "no booking at all")

	f.booking(item.ID, booker.ID, -3*time.Hour, time.Hour, models.StatusApproved)
	_, err = f.comments.AddComment(f.ctx, booker.ID, item.ID, "still running")
	assert.ErrorIs(t, err, domain.ErrInvalid, "booking has not ended")

	f.booking(item.ID, booker.ID, -6*time.Hour, -5*time.Hour, models.StatusRejected)
	_, err = f.comments.AddComment(f.ctx, booker.ID, item.ID, "rejected")
	assert.ErrorIs(t, err, domain.ErrInvalid, "rejected bookings do not count")

	f.booking(item.ID, booker.ID, -10*time.Hour, -9*time.Hour, models.StatusApproved)
	comment, err := f.comments.AddComment(f.ctx, booker.ID, item.ID, "  great drill ")
	require.NoError(t, err)
	assert.Equal(t, "great drill", comment.Text)
	assert.Equal(t, "Booker", comment.AuthorName)
	assert.True(t, f.now.Equal(comment.Created))
	f.bus.AssertCalled(t, "PublishJSON", events.EventCommentAdded, mock.Anything)

	_, err = f.comments.AddComment(f.ctx, booker.ID, item.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalid)
	_, err = f.comments.AddComment(f.ctx, 99, item.ID, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.comments.AddComment(f.ctx, booker.ID, 99, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
