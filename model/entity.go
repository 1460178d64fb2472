package model

import (
	"fmt"
	"time"
)

// EntityKind represents the kind of an extracted code construct
type EntityKind string

const (
	EntityKindPackage    EntityKind = "Package"
	EntityKindFile       EntityKind = "File"
	EntityKindClass      EntityKind = "Class"
	EntityKindFunction   EntityKind = "Function"
	EntityKindMethod     EntityKind = "Method"
	EntityKindParameter  EntityKind = "Parameter"
	EntityKindReturnType EntityKind = "ReturnType"
	EntityKindDocstring  EntityKind = "Docstring"
)

// Entity represents one extracted code construct (class, function, method, etc.)
// Identity is the tuple (Name, QualifiedModule, Kind). Entities are never
// mutated after creation; re-indexing creates-or-matches by identity.
type Entity struct {
	ID              int        `json:"id,omitempty"`
	Name            string     `json:"name"`
	Kind            EntityKind `json:"kind"`
	QualifiedModule string     `json:"qualified_module"`
	LineNumber      int        `json:"line_number,omitempty"`
	Docstring       string     `json:"docstring,omitempty"`
	Decorators      []string   `json:"decorators,omitempty"`
	Bases           []string   `json:"bases,omitempty"`
	Parameters      []string   `json:"parameters,omitempty"`
	ReturnType      string     `json:"return_type,omitempty"`
	IsAsync         bool       `json:"is_async,omitempty"`
	ParentClass     string     `json:"parent_class,omitempty"` // Set only for Method
	Calls           []string   `json:"calls,omitempty"`        // Syntactically collected invoked names
	Metadata        Metadata   `json:"metadata,omitempty"`
	CreatedAt       time.Time  `json:"created_at,omitempty"`
}

// Identity returns the identity tuple of the entity as a single comparable key
func (e *Entity) Identity() string {
	return fmt.Sprintf("%s|%s|%s", e.Name, e.QualifiedModule, e.Kind)
}

// EntityName is one inventory entry offered to the ranker
type EntityName struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// EntityRelations holds the expanded relationship sets of one resolved entity
type EntityRelations struct {
	Dependencies []*GraphEdge `json:"dependencies"` // Outgoing edges
	Dependents   []*GraphEdge `json:"dependents"`   // Incoming edges
	Parents      []*GraphEdge `json:"parents"`      // Incoming containment edges
}

// ResolvedEntity is one entity selected by the resolver, with its
// relationship sets and the advisory ranking judgment
type ResolvedEntity struct {
	Name       string           `json:"entity_name"`
	Kind       string           `json:"entity_type"`
	Confidence float64          `json:"confidence"`
	Reason     string           `json:"reason,omitempty"`
	NotFound   bool             `json:"not_found,omitempty"` // Name no longer exists in the graph
	Entity     *Entity          `json:"entity,omitempty"`
	Relations  *EntityRelations `json:"relations,omitempty"`
}
