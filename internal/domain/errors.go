package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced card, deck or user does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotOwned is returned when a record exists but belongs to another user.
// It wraps ErrNotFound so both are handled alike.
var ErrNotOwned = fmt.Errorf("%w: not owned by acting user", ErrNotFound)
