package service

import (
	"context"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type RequestService struct {
	base
	store domain.Store
}

func NewRequestService(store domain.Store, clock domain.Clock, eventBus domain.EventPublisher, logger *zerolog.Logger) *RequestService {
	return &RequestService{
		base:  newBase(clock, eventBus, logger),
		store: store,
	}
}

func (s *RequestService) CreateRequest(ctx context.Context, userID int64, description string) (*models.ItemRequest, error) {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	if isBlank(description) {
		return nil, invalidf("description must not be blank")
	}

	req := &models.ItemRequest{
		RequesterID: userID,
		Description: description,
		Created:     s.now(),
		Items:       []models.Item{},
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	s.publish(events.EventRequestCreated, events.RequestEventPayload{
		RequestID:   req.ID,
		RequesterID: userID,
		Description: description,
	})
	return req, nil
}

func (s *RequestService) ListOwnRequests(ctx context.Context, userID int64) ([]*models.ItemRequest, error) {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	reqs, err := s.store.GetRequestsByRequester(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, reqs)
}

// ListOtherRequests pages through everyone else's requests, oldest first.
func (s *RequestService) ListOtherRequests(ctx context.Context, userID int64, page models.Page) ([]*models.ItemRequest, error) {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	reqs, err := s.store.GetRequestsExcept(ctx, userID, page)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, reqs)
}

func (s *RequestService) GetRequest(ctx context.Context, requestID, userID int64) (*models.ItemRequest, error) {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	out, err := s.withItems(ctx, []*models.ItemRequest{req})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// withItems attaches the items offered in answer to each request.
func (s *RequestService) withItems(ctx context.Context, reqs []*models.ItemRequest) ([]*models.ItemRequest, error) {
	if len(reqs) == 0 {
		return reqs, nil
	}
	ids := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ID)
		r.Items = []models.Item{}
	}
	items, err := s.store.GetItemsByRequests(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.ItemRequest, len(reqs))
	for _, r := range reqs {
		byID[r.ID] = r
	}
	for _, it := range items {
		if r, ok := byID[*it.RequestID]; ok {
			r.Items = append(r.Items, *it)
		}
	}
	return reqs, nil
}

var _ domain.RequestService = (*RequestService)(nil)
