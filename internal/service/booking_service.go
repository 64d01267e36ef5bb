package service

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// clockSkew tolerates a start of "now" sent with second precision.
const clockSkew = time.Second

type BookingService struct {
	base
	store domain.Store
}

func NewBookingService(store domain.Store, clock domain.Clock, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		base:  newBase(clock, eventBus, logger),
		store: store,
	}
}

func (s *BookingService) CreateBooking(ctx context.Context, bookerID int64, req models.NewBooking) (*models.BookingView, error) {
	if _, err := s.store.GetUserByID(ctx, bookerID); err != nil {
		return nil, err
	}
	item, err := s.store.GetItemByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}

	if req.Start == nil || req.End == nil || req.Start.IsZero() || req.End.IsZero() {
		return nil, invalidf("start and end are required")
	}
	// хранилища держат даты с точностью до секунды
	start, end := req.Start.Truncate(time.Second), req.End.Truncate(time.Second)
	// Проверяем интервал бронирования
	if end.Before(start) {
		return nil, invalidf("end must not be before start")
	}
	if end.Equal(start) {
		return nil, invalidf("end must not equal start")
	}
	if start.Before(s.now().Add(-clockSkew)) {
		return nil, invalidf("start must not be in the past")
	}
	if !item.IsAvailable() {
		return nil, invalidf("item %d is not available", item.ID)
	}
	// Владелец не может бронировать свою вещь
	if item.OwnerID == bookerID {
		return nil, notFoundf("owner cannot book their own item")
	}

	booking := &models.Booking{
		ItemID:   item.ID,
		BookerID: bookerID,
		Start:    start,
		End:      end,
		Status:   models.StatusWaiting,
	}
	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	view, err := s.store.GetBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	s.publishBooking(events.EventBookingCreated, view)
	return view, nil
}

// DecideBooking approves or rejects a WAITING booking. Only the item owner
// may decide, and only once.
func (s *BookingService) DecideBooking(ctx context.Context, ownerID, bookingID int64, approved bool) (*models.BookingView, error) {
	if _, err := s.store.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	view, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if view.Item.OwnerID != ownerID {
		return nil, notFoundf("booking %d is not owned by user %d", bookingID, ownerID)
	}
	if view.Status != models.StatusWaiting {
		return nil, domain.ErrBookingDecided
	}

	status, eventType := models.StatusRejected, events.EventBookingRejected
	if approved {
		status, eventType = models.StatusApproved, events.EventBookingApproved
	}
	if err := s.store.DecideBooking(ctx, bookingID, status); err != nil {
		return nil, err
	}

	view, err = s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.publishBooking(eventType, view)
	return view, nil
}

// GetBooking is visible to the booker and to the item owner.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, userID int64) (*models.BookingView, error) {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	view, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if view.BookerID != userID && view.Item.OwnerID != userID {
		return nil, notFoundf("booking %d is not visible to user %d", bookingID, userID)
	}
	return view, nil
}

func (s *BookingService) ListBookerBookings(ctx context.Context, bookerID int64, state models.BookingState, page models.Page) ([]*models.BookingView, error) {
	return s.list(ctx, domain.BookingQuery{BookerID: bookerID, State: state, Page: page})
}

func (s *BookingService) ListOwnerBookings(ctx context.Context, ownerID int64, state models.BookingState, page models.Page) ([]*models.BookingView, error) {
	return s.list(ctx, domain.BookingQuery{OwnerID: ownerID, State: state, Page: page})
}

func (s *BookingService) list(ctx context.Context, q domain.BookingQuery) ([]*models.BookingView, error) {
	st, err := models.ParseState(string(q.State))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalid, err)
	}
	userID := q.BookerID
	if userID == 0 {
		userID = q.OwnerID
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	q.State = st
	q.Now = s.now()
	return s.store.ListBookings(ctx, q)
}

func (s *BookingService) publishBooking(eventType string, view *models.BookingView) {
	s.publish(eventType, events.BookingEventPayload{
		BookingID:  view.ID,
		ItemID:     view.Item.ID,
		ItemName:   view.Item.Name,
		OwnerID:    view.Item.OwnerID,
		BookerID:   view.Booker.ID,
		BookerName: view.Booker.Name,
		Status:     string(view.Status),
		Start:      view.Start,
		End:        view.End,
	})
}

var _ domain.BookingService = (*BookingService)(nil)
