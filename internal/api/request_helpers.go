package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/moodboard-api/internal/domain"
)

// getPathID extracts a positive integer ID from the URL path parameter paramName.
func getPathID(r *http.Request, paramName string) (int64, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrValidation, paramName)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %w: %s=%q", domain.ErrValidation, domain.ErrInvalidID, paramName, raw)
	}
	return id, nil
}
