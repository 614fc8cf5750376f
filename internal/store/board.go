package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/moodboard-api/internal/domain"
)

// BoardStore defines persistence operations on boards.
type BoardStore interface {
	// GetByID retrieves a board by its ID.
	// Returns ErrBoardNotFound if the board does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Board, error)

	// SetClustering sets the advisory is_clustering flag of a board.
	// Returns ErrBoardNotFound if the board does not exist.
	SetClustering(ctx context.Context, id int64, clustering bool) error

	// WithTx returns a new BoardStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) BoardStore
}

// ClusterLabelStore defines persistence operations on generated cluster labels.
type ClusterLabelStore interface {
	// DeleteByBoard removes every label of the board.
	DeleteByBoard(ctx context.Context, boardID int64) error

	// Upsert inserts a label or replaces the text of the existing
	// (board_id, cluster_id) label.
	Upsert(ctx context.Context, label *domain.ClusterLabel) error

	// ListByBoard returns the labels of a board ordered by cluster ID.
	ListByBoard(ctx context.Context, boardID int64) ([]domain.ClusterLabel, error)

	// WithTx returns a new ClusterLabelStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ClusterLabelStore
}

// StatsStore reports system-wide counts.
type StatsStore interface {
	GetSystemStats(ctx context.Context) (*domain.SystemStats, error)
}
