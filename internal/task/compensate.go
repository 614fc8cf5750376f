package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/moodboard-api/internal/store"
)

// settleItemFailure turns a failed enrichment stage into the job's result.
// Unrecoverable failures delete the item: an item that cannot be enriched is
// not viable. Deleting an absent item is a no-op, so redelivery is safe.
func settleItemFailure(
	ctx context.Context,
	items store.ItemStore,
	log *slog.Logger,
	itemID int64,
	f *Failure,
) error {
	if f.Kind != FailureUnrecoverable {
		return f
	}

	// The delete must run even when the stage failed on a deadline.
	delCtx := context.WithoutCancel(ctx)
	if err := items.Delete(delCtx, itemID); err != nil {
		log.Error("compensating delete failed",
			slog.Int64("item_id", itemID),
			slog.String("cause", f.Error()),
			slog.String("error", err.Error()))
		return fmt.Errorf("compensating delete of item %d: %w", itemID, err)
	}

	log.Warn("enrichment failed, item deleted",
		slog.Int64("item_id", itemID),
		slog.String("error", f.Error()))
	return Permanent(f)
}
