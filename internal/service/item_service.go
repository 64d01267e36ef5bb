package service

import (
	"context"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type ItemService struct {
	base
	store domain.Store
}

func NewItemService(store domain.Store, clock domain.Clock, eventBus domain.EventPublisher, logger *zerolog.Logger) *ItemService {
	return &ItemService{
		base:  newBase(clock, eventBus, logger),
		store: store,
	}
}

func (s *ItemService) CreateItem(ctx context.Context, ownerID int64, item *models.Item) (*models.Item, error) {
	if _, err := s.store.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	if isBlank(item.Name) {
		return nil, invalidf("name must not be blank")
	}
	if isBlank(item.Description) {
		return nil, invalidf("description must not be blank")
	}
	if item.Available == nil {
		return nil, invalidf("available must be set")
	}
	if item.RequestID != nil {
		if _, err := s.store.GetRequest(ctx, *item.RequestID); err != nil {
			return nil, err
		}
	}

	item.ID = 0
	item.OwnerID = ownerID
	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	s.publish(events.EventItemCreated, events.ItemEventPayload{
		ItemID:    item.ID,
		OwnerID:   item.OwnerID,
		Name:      item.Name,
		RequestID: item.RequestID,
	})
	return item, nil
}

func (s *ItemService) UpdateItem(ctx context.Context, ownerID, itemID int64, patch models.ItemPatch) (*models.Item, error) {
	item, err := s.store.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}

	if patch.Name != nil && !isBlank(*patch.Name) {
		item.Name = *patch.Name
	}
	if patch.Description != nil && !isBlank(*patch.Description) {
		item.Description = *patch.Description
	}
	if patch.Available != nil {
		item.Available = models.Ptr(*patch.Available)
	}

	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem returns the item with its comments. Last and next bookings are
// shown to the owner only.
func (s *ItemService) GetItem(ctx context.Context, itemID, userID int64) (*models.ItemDetails, error) {
	item, err := s.store.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	details, err := s.details(ctx, []*models.Item{item}, item.OwnerID == userID)
	if err != nil {
		return nil, err
	}
	return details[0], nil
}

func (s *ItemService) ListOwnerItems(ctx context.Context, ownerID int64, page models.Page) ([]*models.ItemDetails, error) {
	if _, err := s.store.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	items, err := s.store.GetItemsByOwner(ctx, ownerID, page)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, items, true)
}

func (s *ItemService) SearchItems(ctx context.Context, text string, page models.Page) ([]*models.Item, error) {
	if isBlank(text) {
		return []*models.Item{}, nil
	}
	return s.store.SearchItems(ctx, text, page)
}

func (s *ItemService) details(ctx context.Context, items []*models.Item, withBookings bool) ([]*models.ItemDetails, error) {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	comments, err := s.store.GetCommentsByItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	byItem := make(map[int64][]models.Comment, len(items))
	for _, c := range comments {
		byItem[c.ItemID] = append(byItem[c.ItemID], *c)
	}

	now := s.now()
	out := make([]*models.ItemDetails, 0, len(items))
	for _, it := range items {
		d := &models.ItemDetails{Item: *it, Comments: byItem[it.ID]}
		if d.Comments == nil {
			d.Comments = []models.Comment{}
		}
		if withBookings {
			last, err := s.store.LastBooking(ctx, it.ID, now)
			if err != nil {
				return nil, err
			}
			next, err := s.store.NextBooking(ctx, it.ID, now)
			if err != nil {
				return nil, err
			}
			d.LastBooking = models.ShortOf(last)
			d.NextBooking = models.ShortOf(next)
		}
		out = append(out, d)
	}
	return out, nil
}

var _ domain.ItemService = (*ItemService)(nil)
