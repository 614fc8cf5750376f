package domain

import "time"

// Board groups items. IsClustering is advisory state surfaced to readers while a
// clustering job holds the board's lock; the lock itself is authoritative.
type Board struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	IsClustering bool      `json:"is_clustering"`
	CreatedAt    time.Time `json:"created_at"`
}

// ClusterLabel is the generated name for one cluster of a board. Labels are
// unique per (BoardID, ClusterID) and replaced wholesale on every clustering run.
type ClusterLabel struct {
	BoardID   int64  `json:"board_id"`
	ClusterID int    `json:"cluster_id"`
	Label     string `json:"label"`
}

// SystemStats holds system-wide counts.
type SystemStats struct {
	Boards   int64 `json:"boards"`
	Items    int64 `json:"items"`
	Clusters int64 `json:"clusters"`
	Labels   int64 `json:"labels"`
}
