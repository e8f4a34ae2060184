package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

const MaxLimit = 250

var ErrInvalidLimit = errors.New("limit must be between 1 and 250")

type Pagination struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit" binding:"omitempty,gte=1,lte=250"`
}

// Cursor points at the last row of a page ordered by (created_at, id).
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	if cursor.ID == "" {
		return nil, errors.New("cursor has no id")
	}

	return &cursor, nil
}

// Trim cuts data fetched with limit+1 rows down to limit and reports whether
// another page exists.
func Trim[T any](data []*T, limit int) ([]*T, bool) {
	if limit <= 0 || len(data) <= limit {
		return data, false
	}
	return data[:limit], true
}
