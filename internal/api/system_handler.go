package api

import (
	"context"
	"net/http"

	"github.com/phrazzld/moodboard-api/internal/api/shared"
	"github.com/phrazzld/moodboard-api/internal/health"
	"github.com/phrazzld/moodboard-api/internal/store"
)

// HealthChecker produces a health report. *health.Reporter implements it.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// SystemHandler serves health and statistics endpoints.
type SystemHandler struct {
	health HealthChecker
	stats  store.StatsStore
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(health HealthChecker, stats store.StatsStore) *SystemHandler {
	return &SystemHandler{health: health, stats: stats}
}

// Health handles GET /api/health: 200 when every dependency is ok, 503 otherwise.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.health.Check(r.Context())

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	shared.RespondWithJSON(w, r, status, report)
}

// Stats handles GET /api/system/stats.
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetSystemStats(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to load statistics", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}
