package models

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrInvalidFrom = errors.New("from must not be negative")
	ErrInvalidSize = errors.New("size must be positive")
)

// Page is an offset window expressed as from/size. Offsets are aligned down
// to a multiple of size, so from=5,size=3 selects rows 3..5.
type Page struct {
	From int
	Size int
}

// Unpaged selects every row.
var Unpaged = Page{}

// ParsePage reads raw from/size query values; empty values take defaults.
func ParsePage(rawFrom, rawSize string) (Page, error) {
	p := Page{From: 0, Size: DefaultPageSize}
	if v := strings.TrimSpace(rawFrom); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Page{}, ErrInvalidFrom
		}
		p.From = n
	}
	if v := strings.TrimSpace(rawSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Page{}, ErrInvalidSize
		}
		p.Size = n
	}
	return p, nil
}

// Offset returns the first row of the page.
func (p Page) Offset() int {
	if p.Size <= 0 {
		return 0
	}
	return (p.From / p.Size) * p.Size
}

// Limit returns the page size, or -1 for an unbounded page.
func (p Page) Limit() int {
	if p.Size <= 0 {
		return -1
	}
	return p.Size
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
