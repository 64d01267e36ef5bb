package models

import (
	"encoding/json"
	"time"
)

type Comment struct {
	ID         int64     `json:"id"`
	ItemID     int64     `json:"-"`
	AuthorID   int64     `json:"-"`
	AuthorName string    `json:"authorName"`
	Text       string    `json:"text"`
	Created    time.Time `json:"-"`
}

// NewComment is the body of POST /items/{id}/comment.
type NewComment struct {
	Text string `json:"text" binding:"required"`
}

func (c Comment) MarshalJSON() ([]byte, error) {
	type alias Comment
	return json.Marshal(struct {
		alias
		Created DateTime `json:"created"`
	}{alias(c), DateTime{c.Created}})
}
