// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the game service to distinguish between different failure
// scenarios without inspecting driver-specific error strings. Per-entity
// not-found sentinels live next to the repository that returns them.
package repository

import (
	"errors"
	"strings"
)

// ErrDuplicate is returned when an insert violates a unique key, such as
// registering the same email twice for an event or answering the same
// signup question twice. Handlers should translate this into an HTTP 409
// response.
var ErrDuplicate = errors.New("duplicate entry")

// isDuplicateKey reports whether the given database error is a MySQL
// duplicate-key violation (error 1062).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
