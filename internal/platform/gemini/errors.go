package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/phrazzld/moodboard-api/internal/generation"
	"google.golang.org/genai"
)

// classifyError maps a genai call error onto the generation error taxonomy.
// Context errors pass through unchanged so cancellation is not mistaken for
// a model failure.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if isRetryableStatus(apiErr.Code, apiErr.Status) {
			return fmt.Errorf("%w: %s: %v", generation.ErrTransientFailure, op, err)
		}
		return fmt.Errorf("%w: %s: %v", generation.ErrGenerationFailed, op, err)
	}

	// Transport-level failures never reached the model.
	return fmt.Errorf("%w: %s: %v", generation.ErrTransientFailure, op, err)
}

func isRetryableStatus(code int, status string) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return status == "RESOURCE_EXHAUSTED" || status == "UNAVAILABLE"
}
