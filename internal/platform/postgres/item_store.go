package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pgvector/pgvector-go"
	"github.com/phrazzld/moodboard-api/internal/domain"
	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/phrazzld/moodboard-api/internal/store"
)

// PostgresItemStore implements the store.ItemStore interface
// using a PostgreSQL database (with the pgvector extension) as the storage backend.
type PostgresItemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresItemStore creates a new PostgreSQL implementation of the ItemStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresItemStore(db store.DBTX, logger *slog.Logger) *PostgresItemStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresItemStore{
		db:     db,
		logger: logger.With(slog.String("component", "item_store")),
	}
}

// Ensure PostgresItemStore implements store.ItemStore interface
var _ store.ItemStore = (*PostgresItemStore)(nil)

// GetByID implements store.ItemStore.GetByID.
// The embedding is not loaded; use ListEmbeddedByBoard for vectors.
func (s *PostgresItemStore) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, board_id, type, COALESCE(content, ''), image_url, cluster_id
		FROM items
		WHERE id = $1
	`

	var (
		item      domain.Item
		kind      string
		imageURL  sql.NullString
		clusterID sql.NullInt64
	)

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.BoardID,
		&kind,
		&item.Content,
		&imageURL,
		&clusterID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("item not found", slog.Int64("item_id", id))
			return nil, store.ErrItemNotFound
		}
		log.Error("failed to get item by ID",
			slog.String("error", err.Error()),
			slog.Int64("item_id", id))
		return nil, MapError(err)
	}

	item.Kind = domain.ItemKind(kind)
	if imageURL.Valid {
		item.ImageURL = &imageURL.String
	}
	if clusterID.Valid {
		item.AssignCluster(int(clusterID.Int64))
	}

	return &item, nil
}

// UpdateEmbedding implements store.ItemStore.UpdateEmbedding.
func (s *PostgresItemStore) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	query := `UPDATE items SET embedding = $1 WHERE id = $2`
	return s.execOnItem(ctx, "update_embedding", id, query, pgvector.NewVector(embedding), id)
}

// UpdateEnrichment implements store.ItemStore.UpdateEnrichment.
func (s *PostgresItemStore) UpdateEnrichment(
	ctx context.Context,
	id int64,
	content string,
	embedding []float32,
) error {
	if content == "" {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrEmptyContent)
	}
	query := `UPDATE items SET content = $1, embedding = $2 WHERE id = $3`
	return s.execOnItem(ctx, "update_enrichment", id, query, content, pgvector.NewVector(embedding), id)
}

// execOnItem runs a single-row update and maps "no rows" to store.ErrItemNotFound.
func (s *PostgresItemStore) execOnItem(ctx context.Context, op string, id int64, query string, args ...any) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update item",
			slog.String("operation", op),
			slog.String("error", err.Error()),
			slog.Int64("item_id", id))
		return store.NewStoreError("item", op, "exec failed", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("item", op, "failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		log.Debug("no item to update", slog.String("operation", op), slog.Int64("item_id", id))
		return store.ErrItemNotFound
	}

	log.Debug("item updated", slog.String("operation", op), slog.Int64("item_id", id))
	return nil
}

// Delete implements store.ItemStore.Delete. Deleting a missing item is a no-op.
func (s *PostgresItemStore) Delete(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete item",
			slog.String("error", err.Error()),
			slog.Int64("item_id", id))
		return store.NewStoreError("item", "delete", "exec failed",
			fmt.Errorf("%w: %w", store.ErrDeleteFailed, MapError(err)))
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		log.Debug("item already absent", slog.Int64("item_id", id))
	}
	return nil
}

// ListEmbeddedByBoard implements store.ItemStore.ListEmbeddedByBoard.
func (s *PostgresItemStore) ListEmbeddedByBoard(ctx context.Context, boardID int64) ([]*domain.Item, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, board_id, type, COALESCE(content, ''), image_url, embedding
		FROM items
		WHERE board_id = $1 AND embedding IS NOT NULL
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, boardID)
	if err != nil {
		log.Error("failed to list embedded items",
			slog.String("error", err.Error()),
			slog.Int64("board_id", boardID))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var items []*domain.Item
	for rows.Next() {
		var (
			item     domain.Item
			kind     string
			imageURL sql.NullString
			vec      pgvector.Vector
		)
		if err := rows.Scan(&item.ID, &item.BoardID, &kind, &item.Content, &imageURL, &vec); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.Kind = domain.ItemKind(kind)
		if imageURL.Valid {
			item.ImageURL = &imageURL.String
		}
		item.Embedding = vec.Slice()
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	log.Debug("listed embedded items",
		slog.Int64("board_id", boardID),
		slog.Int("count", len(items)))
	return items, nil
}

// UpdateClusterAssignments implements store.ItemStore.UpdateClusterAssignments.
func (s *PostgresItemStore) UpdateClusterAssignments(ctx context.Context, items []*domain.Item) error {
	for _, item := range items {
		var clusterID any
		if item.ClusterID != nil {
			clusterID = *item.ClusterID
		}
		_, err := s.db.ExecContext(ctx,
			`UPDATE items SET cluster_id = $1 WHERE id = $2`, clusterID, item.ID)
		if err != nil {
			return store.NewStoreError("item", "update_cluster", "exec failed", MapError(err))
		}
	}
	return nil
}

// WithTx implements store.ItemStore.WithTx
func (s *PostgresItemStore) WithTx(tx *sql.Tx) store.ItemStore {
	return &PostgresItemStore{
		db:     tx,
		logger: s.logger,
	}
}
