package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/moodboard-api/internal/domain"
	"github.com/phrazzld/moodboard-api/internal/store"
	"github.com/phrazzld/moodboard-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, task.ErrInvalidPayload):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, store.ErrBoardNotFound):
		return "Board not found"
	case errors.Is(err, store.ErrItemNotFound):
		return "Item not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, task.ErrInvalidPayload):
		return "Invalid request data"
	case errors.Is(err, task.ErrQueueClosed):
		return "Job queue unavailable"
	default:
		return "An unexpected error occurred"
	}
}
