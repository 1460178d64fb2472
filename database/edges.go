package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/codectx/repograph/helper"
	"github.com/codectx/repograph/model"
	loadSql "github.com/codectx/repograph/sql"
	"github.com/lib/pq"
)

// ErrEdgeEndpointMissing is returned when an edge references a node that
// does not exist in the graph. The upsert engine counts these per edge
// instead of failing the run.
var ErrEdgeEndpointMissing = errors.New("edge endpoint node not found")

// EdgesDBHandlerFunctions defines the interface for edge database operations.
type EdgesDBHandlerFunctions interface {
	UpsertEdge(rel *model.Relationship) (int, error)
	SelectEdgesFromNode(name string, kinds []model.RelationshipKind) ([]*model.GraphEdge, error)
	SelectEdgesToNode(name string, kinds []model.RelationshipKind) ([]*model.GraphEdge, error)
	SelectAllEdges(kinds []model.RelationshipKind) ([]*model.GraphEdge, error)
	CountEdgesByKind() (map[string]int, error)
	DeleteAllEdges() error
}

// EdgesDBHandler handles edge-related database operations
type EdgesDBHandler struct {
	db *helper.Database
}

// NewEdgesDBHandler creates a new edges database handler.
// It loads edge-related SQL functions and creates the table.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEdgesDBHandler(db *helper.Database, force bool) (*EdgesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	edgesDbHandler := &EdgesDBHandler{
		db: db,
	}

	err := loadSql.LoadEdgesSql(edgesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load edges sql", err)
	}

	err = edgesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EdgesDBHandler")

	return edgesDbHandler, nil
}

// CreateTable creates the 'edges' table in the database.
// The nodes table must exist first for the foreign keys.
func (h *EdgesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_edges();`)
	if err != nil {
		log.Panicf("error initializing edges table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table edges")

	return nil
}

// UpsertEdge inserts an edge, resolving both endpoints by (name, kind).
// Returns ErrEdgeEndpointMissing when either endpoint cannot be resolved.
// Re-inserting an existing (source, kind, target) returns the existing
// edge id, so indexing runs are idempotent.
func (h *EdgesDBHandler) UpsertEdge(rel *model.Relationship) (int, error) {
	var edgeID sql.NullInt64
	err := h.db.Instance.QueryRow(
		`SELECT upsert_edge($1, $2, $3, $4, $5)`,
		rel.SourceName,
		string(rel.SourceKind),
		rel.TargetName,
		string(rel.TargetKind),
		string(rel.Kind),
	).Scan(&edgeID)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	if !edgeID.Valid {
		return 0, ErrEdgeEndpointMissing
	}

	return int(edgeID.Int64), nil
}

// SelectEdgesFromNode retrieves outgoing edges of all nodes with the given name
func (h *EdgesDBHandler) SelectEdgesFromNode(name string, kinds []model.RelationshipKind) ([]*model.GraphEdge, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_edges_from_node($1, $2)`,
		name,
		kindsArray(kinds),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEdges(rows)
}

// SelectEdgesToNode retrieves incoming edges of all nodes with the given name
func (h *EdgesDBHandler) SelectEdgesToNode(name string, kinds []model.RelationshipKind) ([]*model.GraphEdge, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_edges_to_node($1, $2)`,
		name,
		kindsArray(kinds),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEdges(rows)
}

// SelectAllEdges retrieves every edge, optionally filtered by kind
func (h *EdgesDBHandler) SelectAllEdges(kinds []model.RelationshipKind) ([]*model.GraphEdge, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_all_edges($1)`,
		kindsArray(kinds),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEdges(rows)
}

// CountEdgesByKind returns edge counts grouped by kind
func (h *EdgesDBHandler) CountEdgesByKind() (map[string]int, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM count_edges_by_kind()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var kind string
		var count int
		err := rows.Scan(&kind, &count)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		counts[kind] = count
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return counts, nil
}

// DeleteAllEdges wipes all edges
func (h *EdgesDBHandler) DeleteAllEdges() error {
	_, err := h.db.Instance.Exec(`SELECT delete_all_edges()`)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// kindsArray converts the kind filter to a nullable text array parameter
func kindsArray(kinds []model.RelationshipKind) interface{} {
	if len(kinds) == 0 {
		return nil
	}
	strs := make([]string, len(kinds))
	for i, k := range kinds {
		strs[i] = string(k)
	}
	return pq.Array(strs)
}

// scanEdges reads edge rows into graph edges
func scanEdges(rows *sql.Rows) ([]*model.GraphEdge, error) {
	var edges []*model.GraphEdge
	for rows.Next() {
		edge := &model.GraphEdge{}
		err := rows.Scan(
			&edge.ID,
			&edge.SourceName,
			&edge.SourceKind,
			&edge.TargetName,
			&edge.TargetKind,
			&edge.Kind,
			&edge.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		edges = append(edges, edge)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return edges, nil
}
