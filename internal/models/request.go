package models

import (
	"encoding/json"
	"time"
)

// ItemRequest is a public "looking for an item" post.
type ItemRequest struct {
	ID          int64     `json:"id"`
	RequesterID int64     `json:"-"`
	Description string    `json:"description"`
	Created     time.Time `json:"-"`
	Items       []Item    `json:"items"`
}

// NewItemRequest is the body of POST /requests.
type NewItemRequest struct {
	Description string `json:"description" binding:"required"`
}

func (r ItemRequest) MarshalJSON() ([]byte, error) {
	type alias ItemRequest
	if r.Items == nil {
		r.Items = []Item{}
	}
	return json.Marshal(struct {
		alias
		Created DateTime `json:"created"`
	}{alias(r), DateTime{r.Created}})
}
