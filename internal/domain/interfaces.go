package domain

import (
	"context"
	"time"

	"shareit/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BookingQuery selects bookings for one side of the relation: either the
// booker or the owner of the booked items.
type BookingQuery struct {
	BookerID int64
	OwnerID  int64
	State    models.BookingState
	Now      time.Time
	Page     models.Page
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	UpdateItem(ctx context.Context, item *models.Item) error
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	GetItemsByOwner(ctx context.Context, ownerID int64, page models.Page) ([]*models.Item, error)
	SearchItems(ctx context.Context, text string, page models.Page) ([]*models.Item, error)
	GetItemsByRequests(ctx context.Context, requestIDs []int64) ([]*models.Item, error)
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	// GetBooking returns the booking joined with its booker and item.
	GetBooking(ctx context.Context, id int64) (*models.BookingView, error)
	// DecideBooking moves a WAITING booking to the given status exactly once.
	DecideBooking(ctx context.Context, id int64, status models.BookingStatus) error
	ListBookings(ctx context.Context, q BookingQuery) ([]*models.BookingView, error)
	LastBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error)
	NextBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error)
	HasFinishedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentsByItems(ctx context.Context, itemIDs []int64) ([]*models.Comment, error)
}

type RequestRepository interface {
	CreateRequest(ctx context.Context, req *models.ItemRequest) error
	GetRequest(ctx context.Context, id int64) (*models.ItemRequest, error)
	GetRequestsByRequester(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error)
	GetRequestsExcept(ctx context.Context, requesterID int64, page models.Page) ([]*models.ItemRequest, error)
}

// Store is the full persistence surface; the SQLite database and the
// in-memory store both satisfy it.
type Store interface {
	UserRepository
	ItemRepository
	BookingRepository
	CommentRepository
	RequestRepository
	Close() error
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Clock abstracts time.Now for date-sensitive rules.
type Clock interface {
	Now() time.Time
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NotificationQueue defers delivery of operator notifications.
type NotificationQueue interface {
	Enqueue(ctx context.Context, kind, text string) error
}

type UserService interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type ItemService interface {
	CreateItem(ctx context.Context, ownerID int64, item *models.Item) (*models.Item, error)
	UpdateItem(ctx context.Context, ownerID, itemID int64, patch models.ItemPatch) (*models.Item, error)
	GetItem(ctx context.Context, itemID, userID int64) (*models.ItemDetails, error)
	ListOwnerItems(ctx context.Context, ownerID int64, page models.Page) ([]*models.ItemDetails, error)
	SearchItems(ctx context.Context, text string, page models.Page) ([]*models.Item, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, bookerID int64, req models.NewBooking) (*models.BookingView, error)
	DecideBooking(ctx context.Context, ownerID, bookingID int64, approved bool) (*models.BookingView, error)
	GetBooking(ctx context.Context, bookingID, userID int64) (*models.BookingView, error)
	ListBookerBookings(ctx context.Context, bookerID int64, state models.BookingState, page models.Page) ([]*models.BookingView, error)
	ListOwnerBookings(ctx context.Context, ownerID int64, state models.BookingState, page models.Page) ([]*models.BookingView, error)
}

type CommentService interface {
	AddComment(ctx context.Context, userID, itemID int64, text string) (*models.Comment, error)
}

type RequestService interface {
	CreateRequest(ctx context.Context, userID int64, description string) (*models.ItemRequest, error)
	ListOwnRequests(ctx context.Context, userID int64) ([]*models.ItemRequest, error)
	ListOtherRequests(ctx context.Context, userID int64, page models.Page) ([]*models.ItemRequest, error)
	GetRequest(ctx context.Context, requestID, userID int64) (*models.ItemRequest, error)
}
