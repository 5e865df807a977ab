// Package store provides abstractions for data persistence.
package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in
	// the store. This is the generic version of the entity-specific not
	// found errors.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation
	// details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrVideoNotFound indicates that the requested video does not exist
	// in the store.
	ErrVideoNotFound = fmt.Errorf("%w: video", ErrNotFound)

	// ErrChunkNotFound indicates that the requested chunk does not exist
	// in the store.
	ErrChunkNotFound = fmt.Errorf("%w: chunk", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
