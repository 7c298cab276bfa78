package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Cursor points at the last row of a page sorted by (created_at, id) desc.
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

type PageInfo struct {
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

func EncodeCursor(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(raw string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Trim takes a result fetched with limit+1 rows, cuts it to limit and
// reports whether another page follows.
func Trim[T any](data []*T, limit int, cursorOf func(*T) Cursor) ([]*T, *PageInfo, error) {
	if len(data) <= limit {
		return data, &PageInfo{}, nil
	}

	data = data[:limit]
	next, err := EncodeCursor(cursorOf(data[len(data)-1]))
	if err != nil {
		return nil, nil, err
	}
	return data, &PageInfo{NextCursor: next, HasMore: true}, nil
}
