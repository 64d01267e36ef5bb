package service

import (
	"context"
	"strings"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type CommentService struct {
	base
	store domain.Store
}

func NewCommentService(store domain.Store, clock domain.Clock, eventBus domain.EventPublisher, logger *zerolog.Logger) *CommentService {
	return &CommentService{
		base:  newBase(clock, eventBus, logger),
		store: store,
	}
}

// AddComment lets a user review an item after an approved booking of it
// has ended.
func (s *CommentService) AddComment(ctx context.Context, userID, itemID int64, text string) (*models.Comment, error) {
	if _, err := s.store.GetItemByID(ctx, itemID); err != nil {
		return nil, err
	}
	author, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if isBlank(text) {
		return nil, invalidf("text must not be blank")
	}

	now := s.now()
	finished, err := s.store.HasFinishedBooking(ctx, userID, itemID, now)
	if err != nil {
		return nil, err
	}
	if !finished {
		return nil, invalidf("user %d has no finished booking of item %d", userID, itemID)
	}

	comment := &models.Comment{
		ItemID:   itemID,
		AuthorID: userID,
		Text:     strings.TrimSpace(text),
		Created:  now,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	comment.AuthorName = author.Name

	s.publish(events.EventCommentAdded, events.CommentEventPayload{
		CommentID:  comment.ID,
		ItemID:     itemID,
		AuthorID:   userID,
		AuthorName: author.Name,
	})
	return comment, nil
}

var _ domain.CommentService = (*CommentService)(nil)
