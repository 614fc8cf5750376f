package domain

import (
	"fmt"
	"strings"
)

// ItemKind distinguishes text items from image items on a board.
type ItemKind string

// Supported item kinds
const (
	ItemKindText  ItemKind = "text"
	ItemKindImage ItemKind = "image"
)

// IsValid reports whether k is a known item kind.
func (k ItemKind) IsValid() bool {
	return k == ItemKindText || k == ItemKindImage
}

// Item is a single piece of content pinned to a board. Embedding and ClusterID
// are filled in asynchronously by the enrichment and clustering jobs.
type Item struct {
	ID        int64     `json:"id"`
	BoardID   int64     `json:"board_id"`
	Kind      ItemKind  `json:"type"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
	ClusterID *int      `json:"cluster_id,omitempty"`
}

// Validate checks that the item is internally consistent.
func (i *Item) Validate() error {
	if i.ID < 0 || i.BoardID <= 0 {
		return fmt.Errorf("%w: %w: board ID must be positive", ErrValidation, ErrInvalidID)
	}
	if !i.Kind.IsValid() {
		return fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidItemKind, i.Kind)
	}
	if i.Kind == ItemKindText && strings.TrimSpace(i.Content) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyContent)
	}
	if i.Kind == ItemKindImage && (i.ImageURL == nil || *i.ImageURL == "") {
		return fmt.Errorf("%w: %w", ErrValidation, ErrMissingImageURL)
	}
	return nil
}

// HasEmbedding reports whether the item has been embedded.
func (i *Item) HasEmbedding() bool {
	return len(i.Embedding) > 0
}

// AssignCluster sets the item's cluster index.
func (i *Item) AssignCluster(clusterID int) {
	i.ClusterID = &clusterID
}
