// Package api implements the HTTP handlers for the video memory API.
package api

import (
	"errors"
	"net/http"

	"github.com/entropic-labs/recall-api/internal/domain"
	"github.com/entropic-labs/recall-api/internal/search"
	"github.com/entropic-labs/recall-api/internal/service"
	"github.com/entropic-labs/recall-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes based on the error type. This prevents leaking internal error
// types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrVideoNotFound),
		errors.Is(err, store.ErrVideoNotFound),
		errors.Is(err, store.ErrChunkNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrVideoNotIndexable),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, search.ErrEmptyQuery),
		errors.Is(err, search.ErrInvalidTopK):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal
// details such as file paths or connection strings.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrVideoNotFound),
		errors.Is(err, store.ErrVideoNotFound):
		return "Video not found"

	case errors.Is(err, store.ErrChunkNotFound):
		return "Chunk not found"

	case errors.Is(err, service.ErrVideoNotIndexable):
		return "Video is already being indexed"

	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case errors.Is(err, search.ErrEmptyQuery):
		return "Search query cannot be empty"

	case errors.Is(err, search.ErrInvalidTopK):
		return "Result count must be positive"

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}
