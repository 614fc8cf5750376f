package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/moodboard-api/internal/domain"
)

// ItemStore defines persistence operations on board items used by the
// enrichment and clustering jobs.
type ItemStore interface {
	// GetByID retrieves an item by its ID.
	// Returns ErrItemNotFound if the item does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Item, error)

	// UpdateEmbedding stores the embedding vector of an item.
	// Returns ErrItemNotFound if the item does not exist.
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error

	// UpdateEnrichment replaces the display content of an item and stores its embedding.
	// Returns ErrItemNotFound if the item does not exist.
	UpdateEnrichment(ctx context.Context, id int64, content string, embedding []float32) error

	// Delete removes an item. Deleting an item that does not exist is not an error.
	Delete(ctx context.Context, id int64) error

	// ListEmbeddedByBoard returns every item of the board that has an embedding.
	ListEmbeddedByBoard(ctx context.Context, boardID int64) ([]*domain.Item, error)

	// UpdateClusterAssignments persists the ClusterID of each given item.
	UpdateClusterAssignments(ctx context.Context, items []*domain.Item) error

	// WithTx returns a new ItemStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ItemStore
}
