package mocks

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/phrazzld/moodboard-api/internal/domain"
	"github.com/phrazzld/moodboard-api/internal/store"
)

// The memory stores ignore transactions; RunInTransaction snapshots the
// whole MemoryDB instead.
type memoryItemStore struct{ db *MemoryDB }

func (s *memoryItemStore) GetByID(_ context.Context, id int64) (*domain.Item, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.injected("items.GetByID"); err != nil {
		return nil, err
	}
	item, ok := s.db.items[id]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	return &item, nil
}

func (s *memoryItemStore) UpdateEmbedding(_ context.Context, id int64, embedding []float32) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.injected("items.UpdateEmbedding"); err != nil {
		return err
	}
	item, ok := s.db.items[id]
	if !ok {
		return store.ErrItemNotFound
	}
	item.Embedding = append([]float32(nil), embedding...)
	s.db.items[id] = item
	return nil
}

func (s *memoryItemStore) UpdateEnrichment(_ context.Context, id int64, content string, embedding []float32) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.injected("items.UpdateEnrichment"); err != nil {
		return err
	}
	if content == "" {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrEmptyContent)
	}
	item, ok := s.db.items[id]
	if !ok {
		return store.ErrItemNotFound
	}
	item.Content = content
	item.Embedding = append([]float32(nil), embedding...)
	s.db.items[id] = item
	return nil
}

func (s *memoryItemStore) Delete(_ context.Context, id int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.DeleteCalls[id]++
	if err := s.db.injected("items.Delete"); err != nil {
		return err
	}
	delete(s.db.items, id)
	return nil
}

func (s *memoryItemStore) ListEmbeddedByBoard(_ context.Context, boardID int64) ([]*domain.Item, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.injected("items.ListEmbeddedByBoard"); err != nil {
		return nil, err
	}
	var out []*domain.Item
	for _, item := range s.db.items {
		if item.BoardID == boardID && item.HasEmbedding() {
			item := item
			out = append(out, &item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryItemStore) UpdateClusterAssignments(_ context.Context, items []*domain.Item) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.injected("items.UpdateClusterAssignments"); err != nil {
		return err
	}
	for _, in := range items {
		item, ok := s.db.items[in.ID]
		if !ok {
			continue
		}
		if in.ClusterID != nil {
			item.AssignCluster(*in.ClusterID)
		} else {
			item.ClusterID = nil
		}
		s.db.items[in.ID] = item
	}
	return nil
}

func (s *memoryItemStore) WithTx(*sql.Tx) store.ItemStore { return s }

type memoryBoardStore struct{ db *MemoryDB }

func (s *memoryBoardStore) GetByID(_ context.Context, id int64) (*domain.Board, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	b, ok := s.db.boards[id]
	if !ok {
		return nil, store.ErrBoardNotFound
	}
	return &b, nil
}

func (s *memoryBoardStore) SetClustering(_ context.Context, id int64, clustering bool) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.injected(fmt.Sprintf("boards.SetClustering(%t)", clustering)); err != nil {
		return err
	}
	b, ok := s.db.boards[id]
	if !ok {
		return store.ErrBoardNotFound
	}
	b.IsClustering = clustering
	s.db.boards[id] = b
	s.db.ClusteringHistory[id] = append(s.db.ClusteringHistory[id], clustering)
	return nil
}

func (s *memoryBoardStore) WithTx(*sql.Tx) store.BoardStore {
	return s
}

type memoryLabelStore struct{ db *MemoryDB }

func (s *memoryLabelStore) DeleteByBoard(_ context.Context, boardID int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.injected("labels.DeleteByBoard"); err != nil {
		return err
	}
	for k := range s.db.labels {
		if k.boardID == boardID {
			delete(s.db.labels, k)
		}
	}
	return nil
}

func (s *memoryLabelStore) Upsert(_ context.Context, label *domain.ClusterLabel) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.injected("labels.Upsert"); err != nil {
		return err
	}
	if label.Label == "" {
		return fmt.Errorf("%w: label text cannot be empty", store.ErrInvalidEntity)
	}
	s.db.labels[labelKey{label.BoardID, label.ClusterID}] = *label
	return nil
}

func (s *memoryLabelStore) ListByBoard(_ context.Context, boardID int64) ([]domain.ClusterLabel, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []domain.ClusterLabel
	for k, l := range s.db.labels {
		if k.boardID == boardID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClusterID < out[j].ClusterID })
	return out, nil
}

func (s *memoryLabelStore) WithTx(*sql.Tx) store.ClusterLabelStore {
	return s
}
