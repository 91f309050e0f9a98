package model

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID returns a dispatch id. Ids sort by creation time, which the journal
// relies on to order dispatches started in the same instant.
func NewID() string {
	return ulid.Make().String()
}

// ParseID checks that id is a dispatch id and returns the time it was made.
func ParseID(id string) (time.Time, error) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid dispatch id %q: %w", id, err)
	}
	return ulid.Time(u.Time()), nil
}
