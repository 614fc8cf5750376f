package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/phrazzld/moodboard-api/internal/domain"
	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/phrazzld/moodboard-api/internal/store"
)

// PostgresBoardStore implements the store.BoardStore interface.
type PostgresBoardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresBoardStore creates a new PostgreSQL implementation of the BoardStore interface.
func NewPostgresBoardStore(db store.DBTX, logger *slog.Logger) *PostgresBoardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresBoardStore{
		db:     db,
		logger: logger.With(slog.String("component", "board_store")),
	}
}

var _ store.BoardStore = (*PostgresBoardStore)(nil)

// GetByID implements store.BoardStore.GetByID
func (s *PostgresBoardStore) GetByID(ctx context.Context, id int64) (*domain.Board, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var board domain.Board
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, is_clustering, created_at FROM boards WHERE id = $1`, id,
	).Scan(&board.ID, &board.Title, &board.IsClustering, &board.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrBoardNotFound
		}
		log.Error("failed to get board by ID",
			slog.String("error", err.Error()),
			slog.Int64("board_id", id))
		return nil, MapError(err)
	}
	return &board, nil
}

// SetClustering implements store.BoardStore.SetClustering
func (s *PostgresBoardStore) SetClustering(ctx context.Context, id int64, clustering bool) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE boards SET is_clustering = $1 WHERE id = $2`, clustering, id)
	if err != nil {
		log.Error("failed to set clustering flag",
			slog.String("error", err.Error()),
			slog.Int64("board_id", id),
			slog.Bool("is_clustering", clustering))
		return store.NewStoreError("board", "set_clustering", "exec failed", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("board", "set_clustering", "failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return store.ErrBoardNotFound
	}
	return nil
}

// WithTx implements store.BoardStore.WithTx
func (s *PostgresBoardStore) WithTx(tx *sql.Tx) store.BoardStore {
	return &PostgresBoardStore{db: tx, logger: s.logger}
}
