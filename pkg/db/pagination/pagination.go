// Package pagination implements keyset paging over snowflake-keyed rows.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var ErrInvalidCursor = errors.New("invalid_page_token")

type Pagination struct {
	PageToken string
	PageSize  int
}

// Size clamps the requested page size to 1..MaxPageSize.
func (p Pagination) Size() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

// Cursor points at the last row of the previous page. Snowflake IDs grow
// with time so the ID alone fixes the order.
type Cursor struct {
	ID string `json:"id"`
}

func EncodeCursor(c Cursor) string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeCursor(token string) (Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil || c.ID == "" {
		return Cursor{}, ErrInvalidCursor
	}
	return c, nil
}

type Page[T any] struct {
	Items         []T
	NextPageToken string
	HasMore       bool
}

// Trim cuts rows fetched with one extra look-ahead row down to a single page.
func Trim[T any](rows []T, size int, key func(T) string) Page[T] {
	if len(rows) <= size {
		return Page[T]{Items: rows}
	}
	rows = rows[:size]
	return Page[T]{
		Items:         rows,
		NextPageToken: EncodeCursor(Cursor{ID: key(rows[len(rows)-1])}),
		HasMore:       true,
	}
}
