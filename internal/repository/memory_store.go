package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

// MemoryStore is the map-backed domain.Store. It keeps the same ordering,
// error and cascade rules as the SQLite store; values are copied in and out
// so callers never share memory with the store.
type MemoryStore struct {
	mu sync.RWMutex

	users    map[int64]models.User
	items    map[int64]models.Item
	bookings map[int64]models.Booking
	comments map[int64]models.Comment
	requests map[int64]models.ItemRequest

	lastUserID    int64
	lastItemID    int64
	lastBookingID int64
	lastCommentID int64
	lastRequestID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]models.User),
		items:    make(map[int64]models.Item),
		bookings: make(map[int64]models.Booking),
		comments: make(map[int64]models.Comment),
		requests: make(map[int64]models.ItemRequest),
	}
}

func (s *MemoryStore) Close() error { return nil }

func memTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func (s *MemoryStore) emailTaken(email string, exceptID int64) bool {
	for id, u := range s.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(user.Email, 0) {
		return domain.ErrEmailTaken
	}
	now := memTime(time.Now())
	s.lastUserID++
	user.ID = s.lastUserID
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if s.emailTaken(user.Email, user.ID) {
		return domain.ErrEmailTaken
	}
	stored.Name = user.Name
	stored.Email = user.Email
	stored.UpdatedAt = memTime(time.Now())
	s.users[user.ID] = stored
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		u := u
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// DeleteUser mirrors the foreign key cascades of the SQL schema.
func (s *MemoryStore) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(s.users, id)

	for reqID, r := range s.requests {
		if r.RequesterID != id {
			continue
		}
		delete(s.requests, reqID)
		for itemID, it := range s.items {
			if it.RequestID != nil && *it.RequestID == reqID {
				it.RequestID = nil
				s.items[itemID] = it
			}
		}
	}
	for itemID, it := range s.items {
		if it.OwnerID == id {
			s.deleteItemLocked(itemID)
		}
	}
	for bookingID, b := range s.bookings {
		if b.BookerID == id {
			delete(s.bookings, bookingID)
		}
	}
	for commentID, c := range s.comments {
		if c.AuthorID == id {
			delete(s.comments, commentID)
		}
	}
	return nil
}

func (s *MemoryStore) deleteItemLocked(itemID int64) {
	delete(s.items, itemID)
	for id, b := range s.bookings {
		if b.ItemID == itemID {
			delete(s.bookings, id)
		}
	}
	for id, c := range s.comments {
		if c.ItemID == itemID {
			delete(s.comments, id)
		}
	}
}

func copyItem(it models.Item) *models.Item {
	if it.Available != nil {
		it.Available = models.Ptr(*it.Available)
	}
	if it.RequestID != nil {
		it.RequestID = models.Ptr(*it.RequestID)
	}
	return &it
}

func (s *MemoryStore) CreateItem(ctx context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[item.OwnerID]; !ok {
		return fmt.Errorf("%w: owner or request does not exist", domain.ErrNotFound)
	}
	if item.RequestID != nil {
		if _, ok := s.requests[*item.RequestID]; !ok {
			return fmt.Errorf("%w: owner or request does not exist", domain.ErrNotFound)
		}
	}
	if item.Available == nil {
		item.Available = models.Ptr(false)
	}
	now := memTime(time.Now())
	s.lastItemID++
	item.ID = s.lastItemID
	item.CreatedAt = now
	item.UpdatedAt = now
	s.items[item.ID] = *copyItem(*item)
	return nil
}

func (s *MemoryStore) UpdateItem(ctx context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[item.ID]
	if !ok {
		return domain.ErrItemNotFound
	}
	stored.Name = item.Name
	stored.Description = item.Description
	stored.Available = models.Ptr(item.IsAvailable())
	stored.UpdatedAt = memTime(time.Now())
	s.items[item.ID] = stored
	item.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *MemoryStore) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return copyItem(it), nil
}

func (s *MemoryStore) selectItems(match func(models.Item) bool) []*models.Item {
	items := make([]*models.Item, 0)
	for _, it := range s.items {
		if match(it) {
			items = append(items, copyItem(it))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (s *MemoryStore) GetItemsByOwner(ctx context.Context, ownerID int64, page models.Page) ([]*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.selectItems(func(it models.Item) bool { return it.OwnerID == ownerID })
	return paginate(items, page), nil
}

// SearchItems matches available items whose name or description contains
// text, ignoring case.
func (s *MemoryStore) SearchItems(ctx context.Context, text string, page models.Page) ([]*models.Item, error) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return []*models.Item{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.selectItems(func(it models.Item) bool {
		if !it.IsAvailable() {
			return false
		}
		return strings.Contains(strings.ToLower(it.Name), needle) ||
			strings.Contains(strings.ToLower(it.Description), needle)
	})
	return paginate(items, page), nil
}

func (s *MemoryStore) GetItemsByRequests(ctx context.Context, requestIDs []int64) ([]*models.Item, error) {
	wanted := make(map[int64]struct{}, len(requestIDs))
	for _, id := range requestIDs {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selectItems(func(it models.Item) bool {
		if it.RequestID == nil {
			return false
		}
		_, ok := wanted[*it.RequestID]
		return ok
	}), nil
}

func (s *MemoryStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[booking.ItemID]; !ok {
		return fmt.Errorf("%w: item or booker does not exist", domain.ErrNotFound)
	}
	if _, ok := s.users[booking.BookerID]; !ok {
		return fmt.Errorf("%w: item or booker does not exist", domain.ErrNotFound)
	}
	start, end := memTime(booking.Start), memTime(booking.End)
	if !end.After(start) {
		return fmt.Errorf("%w: booking end must be after start", domain.ErrInvalid)
	}
	if booking.Status == "" {
		booking.Status = models.StatusWaiting
	}
	now := memTime(time.Now())
	s.lastBookingID++
	booking.ID = s.lastBookingID
	booking.Start = start
	booking.End = end
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	s.bookings[booking.ID] = *booking
	return nil
}

func (s *MemoryStore) viewLocked(b models.Booking) *models.BookingView {
	booker := s.users[b.BookerID]
	item := s.items[b.ItemID]
	return &models.BookingView{
		Booking: b,
		Booker:  models.UserShort{ID: booker.ID, Name: booker.Name, Email: booker.Email},
		Item:    *copyItem(item),
	}
}

func (s *MemoryStore) GetBooking(ctx context.Context, id int64) (*models.BookingView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return s.viewLocked(b), nil
}

func (s *MemoryStore) DecideBooking(ctx context.Context, id int64, status models.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if b.Status != models.StatusWaiting {
		return domain.ErrBookingDecided
	}
	b.Status = status
	b.UpdatedAt = memTime(time.Now())
	b.Version++
	s.bookings[id] = b
	return nil
}

func (s *MemoryStore) ListBookings(ctx context.Context, q domain.BookingQuery) ([]*models.BookingView, error) {
	if q.BookerID == 0 && q.OwnerID == 0 {
		return nil, fmt.Errorf("%w: booker or owner is required", domain.ErrInvalid)
	}
	state := q.State
	if state == "" {
		state = models.StateAll
	}
	if parsed, err := models.ParseState(string(state)); err != nil || parsed != state {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalid, (&models.ErrUnknownState{Value: string(state)}).Error())
	}
	now := memTime(q.Now)

	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]*models.BookingView, 0)
	for _, b := range s.bookings {
		if q.BookerID != 0 && b.BookerID != q.BookerID {
			continue
		}
		if q.BookerID == 0 && s.items[b.ItemID].OwnerID != q.OwnerID {
			continue
		}
		if !state.Matches(&b, now) {
			continue
		}
		views = append(views, s.viewLocked(b))
	}
	sort.Slice(views, func(i, j int) bool {
		if !views[i].Start.Equal(views[j].Start) {
			return views[i].Start.After(views[j].Start)
		}
		return views[i].ID > views[j].ID
	})
	return paginate(views, q.Page), nil
}

func (s *MemoryStore) LastBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error) {
	now = memTime(now)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *models.Booking
	for _, b := range s.bookings {
		if b.ItemID != itemID || b.Status != models.StatusApproved || !b.Start.Before(now) {
			continue
		}
		if last == nil || b.End.After(last.End) || (b.End.Equal(last.End) && b.ID > last.ID) {
			b := b
			last = &b
		}
	}
	return last, nil
}

func (s *MemoryStore) NextBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error) {
	now = memTime(now)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var next *models.Booking
	for _, b := range s.bookings {
		if b.ItemID != itemID || b.Status != models.StatusApproved || !b.Start.After(now) {
			continue
		}
		if next == nil || b.Start.Before(next.Start) || (b.Start.Equal(next.Start) && b.ID < next.ID) {
			b := b
			next = &b
		}
	}
	return next, nil
}

func (s *MemoryStore) HasFinishedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error) {
	now = memTime(now)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bookings {
		if b.BookerID == bookerID && b.ItemID == itemID && b.Status == models.StatusApproved && b.End.Before(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[comment.ItemID]; !ok {
		return fmt.Errorf("%w: item or author does not exist", domain.ErrNotFound)
	}
	if _, ok := s.users[comment.AuthorID]; !ok {
		return fmt.Errorf("%w: item or author does not exist", domain.ErrNotFound)
	}
	if comment.Created.IsZero() {
		comment.Created = time.Now()
	}
	comment.Created = memTime(comment.Created)
	s.lastCommentID++
	comment.ID = s.lastCommentID
	stored := *comment
	stored.AuthorName = ""
	s.comments[comment.ID] = stored
	return nil
}

// GetCommentsByItems returns comments oldest first with the author's
// current name.
func (s *MemoryStore) GetCommentsByItems(ctx context.Context, itemIDs []int64) ([]*models.Comment, error) {
	wanted := make(map[int64]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := make([]*models.Comment, 0)
	for _, c := range s.comments {
		if _, ok := wanted[c.ItemID]; !ok {
			continue
		}
		c := c
		c.AuthorName = s.users[c.AuthorID].Name
		comments = append(comments, &c)
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].Created.Equal(comments[j].Created) {
			return comments[i].Created.Before(comments[j].Created)
		}
		return comments[i].ID < comments[j].ID
	})
	return comments, nil
}

func (s *MemoryStore) CreateRequest(ctx context.Context, req *models.ItemRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[req.RequesterID]; !ok {
		return domain.ErrUserNotFound
	}
	if req.Created.IsZero() {
		req.Created = time.Now()
	}
	req.Created = memTime(req.Created)
	s.lastRequestID++
	req.ID = s.lastRequestID
	stored := *req
	stored.Items = nil
	s.requests[req.ID] = stored
	return nil
}

func (s *MemoryStore) GetRequest(ctx context.Context, id int64) (*models.ItemRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	return &r, nil
}

func (s *MemoryStore) selectRequests(match func(models.ItemRequest) bool) []*models.ItemRequest {
	reqs := make([]*models.ItemRequest, 0)
	for _, r := range s.requests {
		if match(r) {
			r := r
			reqs = append(reqs, &r)
		}
	}
	sort.Slice(reqs, func(i, j int) bool {
		if !reqs[i].Created.Equal(reqs[j].Created) {
			return reqs[i].Created.Before(reqs[j].Created)
		}
		return reqs[i].ID < reqs[j].ID
	})
	return reqs
}

func (s *MemoryStore) GetRequestsByRequester(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selectRequests(func(r models.ItemRequest) bool { return r.RequesterID == requesterID }), nil
}

func (s *MemoryStore) GetRequestsExcept(ctx context.Context, requesterID int64, page models.Page) ([]*models.ItemRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reqs := s.selectRequests(func(r models.ItemRequest) bool { return r.RequesterID != requesterID })
	return paginate(reqs, page), nil
}

// paginate applies the same offset/limit window as the SQL queries.
func paginate[T any](rows []T, page models.Page) []T {
	offset := page.Offset()
	if offset >= len(rows) {
		return rows[:0]
	}
	rows = rows[offset:]
	if limit := page.Limit(); limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

var _ domain.Store = (*MemoryStore)(nil)
