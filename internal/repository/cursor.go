package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidCursor is returned when a pagination cursor cannot be parsed.
var ErrInvalidCursor = errors.New("invalid cursor")

// formatCursor encodes a keyset position as "unixnano:id".
func formatCursor(t time.Time, id string) string {
	return fmt.Sprintf("%d:%s", t.UnixNano(), id)
}

// parseCursor decodes a cursor built by formatCursor.
func parseCursor(cursor string) (time.Time, string, error) {
	ts, id, ok := strings.Cut(cursor, ":")
	if !ok || id == "" {
		return time.Time{}, "", ErrInvalidCursor
	}
	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, "", ErrInvalidCursor
	}
	return time.Unix(0, nanos).UTC(), id, nil
}
