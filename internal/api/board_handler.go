package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/moodboard-api/internal/api/shared"
	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/phrazzld/moodboard-api/internal/store"
)

// ClusterEnqueuer enqueues board clustering. *task.Enqueuer implements it.
type ClusterEnqueuer interface {
	EnqueueClustering(ctx context.Context, boardID int64) (string, error)
}

// ClusterResponse is returned once a clustering job has been accepted.
type ClusterResponse struct {
	Message string `json:"cluster_message"`
}

// BoardHandler handles board HTTP requests
type BoardHandler struct {
	boards   store.BoardStore
	enqueuer ClusterEnqueuer
	logger   *slog.Logger
}

// NewBoardHandler creates a new BoardHandler
func NewBoardHandler(boards store.BoardStore, enqueuer ClusterEnqueuer, logger *slog.Logger) *BoardHandler {
	return &BoardHandler{boards: boards, enqueuer: enqueuer, logger: logger}
}

// TriggerClustering handles POST /api/boards/{boardID}/cluster. It returns
// 202 as soon as the job is enqueued; a run already in progress for the
// board makes the new job a no-op.
func (h *BoardHandler) TriggerClustering(w http.ResponseWriter, r *http.Request) {
	boardID, err := getPathID(r, "boardID")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid board ID", err)
		return
	}

	if _, err := h.boards.GetByID(r.Context(), boardID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	jobID, err := h.enqueuer.EnqueueClustering(r.Context(), boardID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("clustering job enqueued",
		slog.Int64("board_id", boardID),
		slog.String("job_id", jobID))
	shared.RespondWithJSON(w, r, http.StatusAccepted, ClusterResponse{Message: "Clustering job enqueued"})
}
