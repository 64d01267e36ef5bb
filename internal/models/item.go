package models

import "time"

type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description" binding:"required"`
	Available   *bool     `json:"available" binding:"required"`
	OwnerID     int64     `json:"-"`
	RequestID   *int64    `json:"requestId"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// IsAvailable reports the availability flag, treating an unset flag as false.
func (i *Item) IsAvailable() bool {
	return i.Available != nil && *i.Available
}

// ItemPatch carries the fields of a partial item update.
// Blank strings are treated as absent.
type ItemPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
}

// ItemDetails is the read model of an item: comments are always attached,
// LastBooking and NextBooking only when the reader owns the item.
type ItemDetails struct {
	Item
	LastBooking *BookingShort `json:"lastBooking"`
	NextBooking *BookingShort `json:"nextBooking"`
	Comments    []Comment     `json:"comments"`
}
