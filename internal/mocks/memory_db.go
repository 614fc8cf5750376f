package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/moodboard-api/internal/domain"
	"github.com/phrazzld/moodboard-api/internal/store"
)

type labelKey struct {
	boardID   int64
	clusterID int
}

// MemoryDB holds boards, items and cluster labels in memory and implements
// store.Transactor with snapshot rollback.
type MemoryDB struct {
	mu     sync.Mutex
	boards map[int64]domain.Board
	items  map[int64]domain.Item
	labels map[labelKey]domain.ClusterLabel
	nextID int64

	// errs injects an error for an operation name such as "items.Delete".
	errs map[string]error

	// ClusteringHistory records every value written to a board's is_clustering flag.
	ClusteringHistory map[int64][]bool
	// DeleteCalls counts item deletes per item ID, including no-op deletes.
	DeleteCalls map[int64]int
}

var _ store.Transactor = (*MemoryDB)(nil)

// NewMemoryDB returns an empty MemoryDB.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		boards:            make(map[int64]domain.Board),
		items:             make(map[int64]domain.Item),
		labels:            make(map[labelKey]domain.ClusterLabel),
		errs:              make(map[string]error),
		ClusteringHistory: make(map[int64][]bool),
		DeleteCalls:       make(map[int64]int),
	}
}

// FailOn makes the named operation return err until cleared with a nil err.
func (db *MemoryDB) FailOn(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err == nil {
		delete(db.errs, op)
		return
	}
	db.errs[op] = err
}

// injected returns the injected error for op. Caller holds mu.
func (db *MemoryDB) injected(op string) error {
	return db.errs[op]
}

// AddBoard creates a board and returns its ID.
func (db *MemoryDB) AddBoard(title string) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nextID++
	db.boards[db.nextID] = domain.Board{ID: db.nextID, Title: title}
	return db.nextID
}

// AddItem stores a copy of item with a fresh ID and returns the ID.
func (db *MemoryDB) AddItem(item domain.Item) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nextID++
	item.ID = db.nextID
	db.items[item.ID] = item
	return item.ID
}

// Board returns a copy of the board.
func (db *MemoryDB) Board(id int64) (domain.Board, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	b, ok := db.boards[id]
	return b, ok
}

// Item returns a copy of the item.
func (db *MemoryDB) Item(id int64) (domain.Item, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	i, ok := db.items[id]
	return i, ok
}

// Labels returns the labels of a board keyed by cluster ID.
func (db *MemoryDB) Labels(boardID int64) map[int]string {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make(map[int]string)
	for k, l := range db.labels {
		if k.boardID == boardID {
			out[k.clusterID] = l.Label
		}
	}
	return out
}

// SetLabel stores a label directly, bypassing validation.
func (db *MemoryDB) SetLabel(l domain.ClusterLabel) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.labels[labelKey{l.BoardID, l.ClusterID}] = l
}

// RunInTransaction implements store.Transactor. The *sql.Tx passed to fn is
// nil; memory stores ignore it. State is restored if fn fails or panics.
func (db *MemoryDB) RunInTransaction(ctx context.Context, fn store.TxFn) (err error) {
	db.mu.Lock()
	if e := db.injected("tx.Begin"); e != nil {
		db.mu.Unlock()
		return e
	}
	snapshot := db.snapshot()
	db.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			db.restore(snapshot)
			panic(p)
		}
	}()

	if err := fn(ctx, nil); err != nil {
		db.restore(snapshot)
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if e := db.injected("tx.Commit"); e != nil {
		db.restoreLocked(snapshot)
		return e
	}
	return nil
}

type dbSnapshot struct {
	boards map[int64]domain.Board
	items  map[int64]domain.Item
	labels map[labelKey]domain.ClusterLabel
}

func (db *MemoryDB) snapshot() dbSnapshot {
	s := dbSnapshot{
		boards: make(map[int64]domain.Board, len(db.boards)),
		items:  make(map[int64]domain.Item, len(db.items)),
		labels: make(map[labelKey]domain.ClusterLabel, len(db.labels)),
	}
	for k, v := range db.boards {
		s.boards[k] = v
	}
	for k, v := range db.items {
		s.items[k] = v
	}
	for k, v := range db.labels {
		s.labels[k] = v
	}
	return s
}

func (db *MemoryDB) restore(s dbSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.restoreLocked(s)
}

func (db *MemoryDB) restoreLocked(s dbSnapshot) {
	db.boards, db.items, db.labels = s.boards, s.items, s.labels
}

// ItemStore returns a store.ItemStore backed by db.
func (db *MemoryDB) ItemStore() store.ItemStore { return &memoryItemStore{db: db} }

// BoardStore returns a store.BoardStore backed by db.
func (db *MemoryDB) BoardStore() store.BoardStore { return &memoryBoardStore{db: db} }

// LabelStore returns a store.ClusterLabelStore backed by db.
func (db *MemoryDB) LabelStore() store.ClusterLabelStore { return &memoryLabelStore{db: db} }

// StatsStore returns a store.StatsStore backed by db.
func (db *MemoryDB) StatsStore() store.StatsStore { return memoryStatsStore{db: db} }

type memoryStatsStore struct{ db *MemoryDB }

func (s memoryStatsStore) GetSystemStats(context.Context) (*domain.SystemStats, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.injected("stats.GetSystemStats"); err != nil {
		return nil, err
	}
	stats := &domain.SystemStats{
		Boards: int64(len(s.db.boards)),
		Items:  int64(len(s.db.items)),
		Labels: int64(len(s.db.labels)),
	}
	clusters := make(map[labelKey]struct{})
	for _, item := range s.db.items {
		if item.ClusterID != nil {
			clusters[labelKey{item.BoardID, *item.ClusterID}] = struct{}{}
		}
	}
	stats.Clusters = int64(len(clusters))
	return stats, nil
}
