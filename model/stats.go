package model

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the state of a repository-indexing run.
// A run is pending → running → {completed | failed}; there is no pause
// or resume. Failure is per-item, so running almost always ends in
// completed with a nonzero error tally; failed is reserved for a
// repository with zero parseable source files.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// GraphStats holds point-in-time totals of the persisted graph
type GraphStats struct {
	NodesByKind map[string]int `json:"nodes_by_kind"`
	EdgesByKind map[string]int `json:"edges_by_kind"`
	TotalNodes  int            `json:"total_nodes"`
	TotalEdges  int            `json:"total_edges"`
}

// IndexStats holds the aggregate result of one indexing run. Per-item
// failures are reflected only here, never as a run-level error.
type IndexStats struct {
	RunID                uuid.UUID  `json:"run_id"`
	RepoID               string     `json:"repo_id"`
	Status               RunStatus  `json:"status"`
	FilesProcessed       int        `json:"files_processed"`
	FilesSkipped         int        `json:"files_skipped"`
	ParseErrors          int        `json:"parse_errors"`
	EntitiesCreated      int        `json:"entities_created"`
	EntityWriteErrors    int        `json:"entity_write_errors"`
	RelationshipsCreated int        `json:"relationships_created"`
	RelationshipErrors   int        `json:"relationship_errors"`
	StartedAt            time.Time  `json:"started_at"`
	FinishedAt           time.Time  `json:"finished_at"`
	Graph                GraphStats `json:"graph"`
}
