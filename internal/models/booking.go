package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// BookingStatus is the lifecycle state stored with a booking.
type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
)

// BookingState is a read filter over bookings relative to now and status.
type BookingState string

const (
	StateAll      BookingState = "ALL"
	StateCurrent  BookingState = "CURRENT"
	StatePast     BookingState = "PAST"
	StateFuture   BookingState = "FUTURE"
	StateWaiting  BookingState = "WAITING"
	StateRejected BookingState = "REJECTED"
)

// ErrUnknownState is returned by ParseState; its text is part of the API.
type ErrUnknownState struct {
	Value string
}

func (e *ErrUnknownState) Error() string {
	return fmt.Sprintf("Unknown state: %s", e.Value)
}

// ParseState parses a state filter case-insensitively. Empty means ALL.
func ParseState(raw string) (BookingState, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StateAll, nil
	}
	switch st := BookingState(strings.ToUpper(trimmed)); st {
	case StateAll, StateCurrent, StatePast, StateFuture, StateWaiting, StateRejected:
		return st, nil
	default:
		return "", &ErrUnknownState{Value: raw}
	}
}

// Matches reports whether a booking falls into the state at the given instant.
func (s BookingState) Matches(b *Booking, now time.Time) bool {
	switch s {
	case StateAll:
		return true
	case StateCurrent:
		return b.Start.Before(now) && b.End.After(now)
	case StatePast:
		return b.End.Before(now)
	case StateFuture:
		return b.Start.After(now)
	case StateWaiting:
		return b.Status == StatusWaiting
	case StateRejected:
		return b.Status == StatusRejected
	}
	return false
}

type Booking struct {
	ID        int64         `json:"id"`
	ItemID    int64         `json:"itemId"`
	BookerID  int64         `json:"bookerId"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"-"`
	UpdatedAt time.Time     `json:"-"`
	Version   int64         `json:"-"`
}

// NewBooking is the body of POST /bookings.
type NewBooking struct {
	ItemID int64     `json:"itemId" binding:"required,gt=0"`
	Start  *DateTime `json:"start" binding:"required"`
	End    *DateTime `json:"end" binding:"required"`
}

// BookingShort is the compact form used for an item's last/next booking.
type BookingShort struct {
	ID       int64
	BookerID int64
	Start    time.Time
	End      time.Time
}

func (b BookingShort) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       int64    `json:"id"`
		BookerID int64    `json:"bookerId"`
		Start    DateTime `json:"start"`
		End      DateTime `json:"end"`
	}{b.ID, b.BookerID, DateTime{b.Start}, DateTime{b.End}})
}

// ShortOf builds the compact form of a booking; nil stays nil.
func ShortOf(b *Booking) *BookingShort {
	if b == nil {
		return nil
	}
	return &BookingShort{ID: b.ID, BookerID: b.BookerID, Start: b.Start, End: b.End}
}

// BookingView is a booking joined with its booker and item.
type BookingView struct {
	Booking
	Booker UserShort
	Item   Item
}

func (v BookingView) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID     int64         `json:"id"`
		Start  DateTime      `json:"start"`
		End    DateTime      `json:"end"`
		Status BookingStatus `json:"status"`
		Booker UserShort     `json:"booker"`
		Item   Item          `json:"item"`
	}{v.ID, DateTime{v.Start}, DateTime{v.End}, v.Status, v.Booker, v.Item})
}
