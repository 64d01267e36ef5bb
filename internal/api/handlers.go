package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/export"
	"shareit/internal/models"
)

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /users", s.handleCreateUser)
	mux.HandleFunc("GET /users", s.handleListUsers)
	mux.HandleFunc("GET /users/{id}", s.handleGetUser)
	mux.HandleFunc("PATCH /users/{id}", s.handleUpdateUser)
	mux.HandleFunc("DELETE /users/{id}", s.handleDeleteUser)

	mux.HandleFunc("POST /items", s.handleCreateItem)
	mux.HandleFunc("GET /items", s.handleListOwnerItems)
	mux.HandleFunc("GET /items/search", s.handleSearchItems)
	mux.HandleFunc("GET /items/{id}", s.handleGetItem)
	mux.HandleFunc("PATCH /items/{id}", s.handleUpdateItem)
	mux.HandleFunc("POST /items/{id}/comment", s.handleAddComment)

	mux.HandleFunc("POST /bookings", s.handleCreateBooking)
	mux.HandleFunc("PATCH /bookings/{id}", s.handleDecideBooking)
	mux.HandleFunc("GET /bookings/{id}", s.handleGetBooking)
	mux.HandleFunc("GET /bookings", s.handleListBookerBookings)
	mux.HandleFunc("GET /bookings/owner", s.handleListOwnerBookings)
	mux.HandleFunc("GET /bookings/owner/export", s.handleExportOwnerBookings)

	mux.HandleFunc("POST /requests", s.handleCreateRequest)
	mux.HandleFunc("GET /requests", s.handleListOwnRequests)
	mux.HandleFunc("GET /requests/all", s.handleListOtherRequests)
	mux.HandleFunc("GET /requests/{id}", s.handleGetRequest)
}

// statusFor maps domain error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	message := err.Error()

	var unknown *models.ErrUnknownState
	if errors.As(err, &unknown) {
		message = unknown.Error()
	}
	if code == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("request_id", RequestID(r.Context())).Msg("request failed")
		message = "internal server error"
	}
	writeError(w, code, message)
}

func (s *HTTPServer) badRequest(w http.ResponseWriter, format string, args ...any) {
	writeError(w, http.StatusBadRequest, fmt.Sprintf(format, args...))
}

// sharerID reads the acting user from the X-Sharer-User-Id header.
func sharerID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(models.HeaderUserID))
	if raw == "" {
		return 0, fmt.Errorf("header %s is required", models.HeaderUserID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("header %s must be a positive integer", models.HeaderUserID)
	}
	return id, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func pageFrom(r *http.Request) (models.Page, error) {
	q := r.URL.Query()
	return models.ParsePage(q.Get("from"), q.Get("size"))
}

// withUser and withUserAndID parse the common request prefix once.
func (s *HTTPServer) withUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := sharerID(r)
	if err != nil {
		s.badRequest(w, "%s", err.Error())
		return 0, false
	}
	return userID, true
}

func (s *HTTPServer) withUserAndID(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, ok := s.withUser(w, r)
	if !ok {
		return 0, 0, false
	}
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, "%s", err.Error())
		return 0, 0, false
	}
	return userID, id, true
}

func (s *HTTPServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := decodeBody(r, &user); err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	created, err := s.svc.Users.CreateUser(r.Context(), &user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users.ListUsers(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	user, err := s.svc.Users.GetUser(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	var patch models.UserPatch
	if err := decodeBody(r, &patch); err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	user, err := s.svc.Users.UpdateUser(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	if err := s.svc.Users.DeleteUser(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *HTTPServer) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.withUser(w, r)
	if !ok {
		return
	}
	var item models.Item
	if err := decodeBody(r, &item); err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	created, err := s.svc.Items.CreateItem(r.Context(), ownerID, &item)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *HTTPServer) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	ownerID, itemID, ok := s.withUserAndID(w, r)
	if !ok {
		return
	}
	var patch models.ItemPatch
	if err := decodeBody(r, &patch); err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	item, err := s.svc.Items.UpdateItem(r.Context(), ownerID, itemID, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *HTTPServer) handleGetItem(w http.ResponseWriter, r *http.Request) {
	userID, itemID, ok := s.withUserAndID(w, r)
	if !ok {
		return
	}
	details, err := s.svc.Items.GetItem(r.Context(), itemID, userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *HTTPServer) handleListOwnerItems(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.withUser(w, r)
	if !ok {
		return
	}
	page, err := pageFrom(r)
	if err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	items, err := s.svc.Items.ListOwnerItems(r.Context(), ownerID, page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.withUser(w, r); !ok {
		return
	}
	page, err := pageFrom(r)
	if err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	items, err := s.svc.Items.SearchItems(r.Context(), r.URL.Query().Get("text"), page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleAddComment(w http.ResponseWriter, r *http.Request) {
	userID, itemID, ok := s.withUserAndID(w, r)
	if !ok {
		return
	}
	var body models.NewComment
	if err := decodeBody(r, &body); err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	comment, err := s.svc.Comments.AddComment(r.Context(), userID, itemID, body.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	bookerID, ok := s.withUser(w, r)
	if !ok {
		return
	}
	var body models.NewBooking
	if err := decodeBody(r, &body); err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	view, err := s.svc.Bookings.CreateBooking(r.Context(), bookerID, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// parseApproved accepts only "true" or "false", ignoring case.
func parseApproved(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "":
		return false, errors.New("parameter approved is required")
	default:
		return false, fmt.Errorf("parameter approved must be true or false, got %q", raw)
	}
}

func (s *HTTPServer) handleDecideBooking(w http.ResponseWriter, r *http.Request) {
	ownerID, bookingID, ok := s.withUserAndID(w, r)
	if !ok {
		return
	}
	approved, err := parseApproved(r.URL.Query().Get("approved"))
	if err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	view, err := s.svc.Bookings.DecideBooking(r.Context(), ownerID, bookingID, approved)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	userID, bookingID, ok := s.withUserAndID(w, r)
	if !ok {
		return
	}
	view, err := s.svc.Bookings.GetBooking(r.Context(), bookingID, userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type listBookingsFunc func(r *http.Request, userID int64, state models.BookingState, page models.Page) ([]*models.BookingView, error)

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request, list listBookingsFunc) {
	userID, ok := s.withUser(w, r)
	if !ok {
		return
	}
	state, err := models.ParseState(r.URL.Query().Get("state"))
	if err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	page, err := pageFrom(r)
	if err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	views, err := list(r, userID, state, page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *HTTPServer) handleListBookerBookings(w http.ResponseWriter, r *http.Request) {
	s.listBookings(w, r, func(r *http.Request, userID int64, state models.BookingState, page models.Page) ([]*models.BookingView, error) {
		return s.svc.Bookings.ListBookerBookings(r.Context(), userID, state, page)
	})
}

func (s *HTTPServer) handleListOwnerBookings(w http.ResponseWriter, r *http.Request) {
	s.listBookings(w, r, func(r *http.Request, userID int64, state models.BookingState, page models.Page) ([]*models.BookingView, error) {
		return s.svc.Bookings.ListOwnerBookings(r.Context(), userID, state, page)
	})
}

// handleExportOwnerBookings streams every booking of the owner's items
// matching the state as an xlsx workbook.
func (s *HTTPServer) handleExportOwnerBookings(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.withUser(w, r)
	if !ok {
		return
	}
	state, err := models.ParseState(r.URL.Query().Get("state"))
	if err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	views, err := s.svc.Bookings.ListOwnerBookings(r.Context(), ownerID, state, models.Unpaged)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	now := time.Now()
	if s.clock != nil {
		now = s.clock.Now()
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(ownerID, state, now)))
	if err := export.WriteOwnerBookings(w, state, views, now); err != nil {
		s.logger.Error().Err(err).Int64("owner_id", ownerID).Msg("export failed")
	}
}

func (s *HTTPServer) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.withUser(w, r)
	if !ok {
		return
	}
	var body models.NewItemRequest
	if err := decodeBody(r, &body); err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	req, err := s.svc.Requests.CreateRequest(r.Context(), userID, body.Description)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *HTTPServer) handleListOwnRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.withUser(w, r)
	if !ok {
		return
	}
	reqs, err := s.svc.Requests.ListOwnRequests(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (s *HTTPServer) handleListOtherRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.withUser(w, r)
	if !ok {
		return
	}
	page, err := pageFrom(r)
	if err != nil {
		s.badRequest(w, "%s", err.Error())
		return
	}
	reqs, err := s.svc.Requests.ListOtherRequests(r.Context(), userID, page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (s *HTTPServer) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	userID, requestID, ok := s.withUserAndID(w, r)
	if !ok {
		return
	}
	req, err := s.svc.Requests.GetRequest(r.Context(), requestID, userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
