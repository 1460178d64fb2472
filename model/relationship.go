package model

import "time"

// RelationshipKind represents the type of a directed edge between two entities
type RelationshipKind string

const (
	RelationshipContains     RelationshipKind = "CONTAINS"
	RelationshipImports      RelationshipKind = "IMPORTS"
	RelationshipInheritsFrom RelationshipKind = "INHERITS_FROM"
	RelationshipCalls        RelationshipKind = "CALLS"
	RelationshipDecoratedBy  RelationshipKind = "DECORATED_BY"
	RelationshipHasMethod    RelationshipKind = "HAS_METHOD"
	RelationshipHasParam     RelationshipKind = "HAS_PARAM"
	RelationshipReturns      RelationshipKind = "RETURNS"
	RelationshipDefines      RelationshipKind = "DEFINES"
	RelationshipDocumentedBy RelationshipKind = "DOCUMENTED_BY"
)

// Relationship is a directed typed edge between two entity identities,
// produced by inference before the entities are persisted. Targets are
// resolved by name at upsert time.
type Relationship struct {
	SourceName string           `json:"source_name"`
	SourceKind EntityKind       `json:"source_kind"`
	TargetName string           `json:"target_name"`
	TargetKind EntityKind       `json:"target_kind"`
	Kind       RelationshipKind `json:"kind"`
}

// GraphEdge is a persisted edge read back from the graph store
type GraphEdge struct {
	ID         int              `json:"id"`
	SourceName string           `json:"source_name"`
	SourceKind EntityKind       `json:"source_kind"`
	TargetName string           `json:"target_name"`
	TargetKind EntityKind       `json:"target_kind"`
	Kind       RelationshipKind `json:"kind"`
	CreatedAt  time.Time        `json:"created_at,omitempty"`
}
