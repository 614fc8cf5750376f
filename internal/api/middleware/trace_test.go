package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/moodboard-api/internal/api/shared"
	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
)

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()
	log, buf := logger.NewCaptureLogger()

	var traceID string
	h := NewTraceMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.NotEmpty(t, traceID)
	entries, err := buf.Entries()
	assert.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, traceID, e["trace_id"])
	}
	assert.Equal(t, 1, buf.CountMessage("inside handler"))
}
