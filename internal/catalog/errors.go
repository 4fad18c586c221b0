package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced record does not exist in the
	// requested store scope.
	ErrNotFound = errors.New("record not found")
	// ErrNotOwner means an identity was resolved but it does not own
	// the target store.
	ErrNotOwner = errors.New("store not owned by caller")
	// ErrStoreNotEmpty blocks store deletion while catalog records
	// still reference it.
	ErrStoreNotEmpty = errors.New("store still has catalog records")
)

// ValidationError names the first missing or invalid field of a
// payload. It is raised before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
