package service

import (
	"context"
	"io"
	"testing"
	"time"

	"shareit/internal/models"
	"shareit/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error { return m.Called(et, p).Error(0) }

// fixture wires every service over one in-memory store with a fixed clock.
type fixture struct {
	t        *testing.T
	ctx      context.Context
	now      time.Time
	store    *repository.MemoryStore
	bus      *mockEventBus
	users    *UserService
	items    *ItemService
	bookings *BookingService
	comments *CommentService
	requests *RequestService
}

func newFixture(t *testing.T) *fixture {
	logger := zerolog.New(io.Discard)
	now := time.Now().Truncate(time.Second)
	clock := FixedClock(now)
	store := repository.NewMemoryStore()
	bus := new(mockEventBus)
	bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil).Maybe()

	return &fixture{
		t:        t,
		ctx:      context.Background(),
		now:      now,
		store:    store,
		bus:      bus,
		users:    NewUserService(store, &logger),
		items:    NewItemService(store, clock, bus, &logger),
		bookings: NewBookingService(store, clock, bus, &logger),
		comments: NewCommentService(store, clock, bus, &logger),
		requests: NewRequestService(store, clock, bus, &logger),
	}
}

func (f *fixture) user(name, email string) *models.User {
	f.t.Helper()
	u, err := f.users.CreateUser(f.ctx, &models.User{Name: name, Email: email})
	require.NoError(f.t, err)
	return u
}

func (f *fixture) item(ownerID int64, name string, available bool) *models.Item {
	f.t.Helper()
	it, err := f.items.CreateItem(f.ctx, ownerID, &models.Item{Name: name, Description: name + " description", Available: models.Ptr(available)})
	require.NoError(f.t, err)
	return it
}

func (f *fixture) at(h time.Duration) *models.DateTime {
	return &models.DateTime{Time: f.now.Add(h)}
}

// booking inserts directly into the store so past bookings can be set up.
func (f *fixture) booking(itemID, bookerID int64, start, end time.Duration, status models.BookingStatus) *models.Booking {
	f.t.Helper()
	b := &models.Booking{ItemID: itemID, BookerID: bookerID, Start: f.now.Add(start), End: f.now.Add(end), Status: status}
	require.NoError(f.t, f.store.CreateBooking(f.ctx, b))
	return b
}
