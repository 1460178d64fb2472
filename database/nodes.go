package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/codectx/repograph/helper"
	"github.com/codectx/repograph/model"
	loadSql "github.com/codectx/repograph/sql"
)

// NodesDBHandlerFunctions defines the interface for node database operations.
type NodesDBHandlerFunctions interface {
	UpsertNode(entity *model.Entity) error
	NodeExists(name string) (bool, error)
	SelectNodeByIdentity(name string, module string, kind model.EntityKind) (*model.Entity, error)
	SelectNodesByName(name string, limit int) ([]*model.Entity, error)
	SelectNodeNames(limit int) ([]*model.EntityName, error)
	SelectNodesBySearch(term string, limit int) ([]*model.Entity, error)
	CountNodesByKind() (map[string]int, error)
	DeleteAllNodes() error
}

// NodesDBHandler handles node-related database operations
type NodesDBHandler struct {
	db *helper.Database
}

// NewNodesDBHandler creates a new nodes database handler.
// It loads node-related SQL functions and creates the table.
// If force is true, it will reload the SQL functions even if they already exist.
func NewNodesDBHandler(db *helper.Database, force bool) (*NodesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	nodesDbHandler := &NodesDBHandler{
		db: db,
	}

	err := loadSql.LoadNodesSql(nodesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load nodes sql", err)
	}

	err = nodesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized NodesDBHandler")

	return nodesDbHandler, nil
}

// CreateTable creates the 'nodes' table in the database.
// If the table already exists, it does not create it again.
func (h *NodesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_nodes();`)
	if err != nil {
		log.Panicf("error initializing nodes table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table nodes")

	return nil
}

// UpsertNode inserts a node or returns the existing row for its identity.
// Nodes are write-once per (name, module, kind); the entity is updated
// with the persisted ID and creation time.
func (h *NodesDBHandler) UpsertNode(entity *model.Entity) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_node($1, $2, $3, $4, $5, $6)`,
		entity.Name,
		string(entity.Kind),
		entity.QualifiedModule,
		entity.LineNumber,
		entity.Docstring,
		entity.Metadata,
	)

	err := row.Scan(
		&entity.ID,
		&entity.Name,
		&entity.Kind,
		&entity.QualifiedModule,
		&entity.LineNumber,
		&entity.Docstring,
		&entity.Metadata,
		&entity.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// NodeExists checks whether any node with the given name exists
func (h *NodesDBHandler) NodeExists(name string) (bool, error) {
	var exists bool
	err := h.db.Instance.QueryRow(
		`SELECT node_exists($1)`,
		name,
	).Scan(&exists)
	if err != nil {
		return false, helper.NewError("scan", err)
	}
	return exists, nil
}

// SelectNodeByIdentity retrieves a node by its identity tuple
func (h *NodesDBHandler) SelectNodeByIdentity(name string, module string, kind model.EntityKind) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_node_by_identity($1, $2, $3)`,
		name,
		module,
		string(kind),
	)

	err := row.Scan(
		&entity.ID,
		&entity.Name,
		&entity.Kind,
		&entity.QualifiedModule,
		&entity.LineNumber,
		&entity.Docstring,
		&entity.Metadata,
		&entity.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectNodesByName retrieves all nodes sharing a name, across modules and kinds
func (h *NodesDBHandler) SelectNodesByName(name string, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_nodes_by_name($1, $2)`,
		name,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// SelectNodeNames retrieves the inventory of named entities for ranking
func (h *NodesDBHandler) SelectNodeNames(limit int) ([]*model.EntityName, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_node_names($1)`,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var names []*model.EntityName
	for rows.Next() {
		name := &model.EntityName{}
		err := rows.Scan(&name.Name, &name.Kind)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		names = append(names, name)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return names, nil
}

// SelectNodesBySearch searches nodes by name substring, shortest match first
func (h *NodesDBHandler) SelectNodesBySearch(term string, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_nodes_by_search($1, $2)`,
		term,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// CountNodesByKind returns node counts grouped by kind
func (h *NodesDBHandler) CountNodesByKind() (map[string]int, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM count_nodes_by_kind()`)
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

// DeleteAllNodes wipes all nodes and, through cascade, all edges
func (h *NodesDBHandler) DeleteAllNodes() error {
	_, err := h.db.Instance.Exec(`SELECT delete_all_nodes()`)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// scanEntities reads node rows into entities
func scanEntities(rows *sql.Rows) ([]*model.Entity, error) {
	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := rows.Scan(
			&entity.ID,
			&entity.Name,
			&entity.Kind,
			&entity.QualifiedModule,
			&entity.LineNumber,
			&entity.Docstring,
			&entity.Metadata,
			&entity.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}
