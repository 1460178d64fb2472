// Package retrieval implements the query-time side of the system: entity
// resolution against the graph inventory, parallel multi-source context
// assembly, and answer synthesis. The whole package follows one contract:
// a query never fails hard, it degrades into a poorer context.
package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/codectx/repograph/database"
	"github.com/codectx/repograph/llm"
	"github.com/codectx/repograph/model"
)

const rankerSystemPrompt = "You are an expert at finding the most relevant code entities for a user query. Return ONLY valid JSON, no extra text."

// ErrRankingUnavailable marks a ranking call that never produced a
// usable ordering. Resolvers swallow it into an empty Resolution, it
// surfaces only in logs.
var ErrRankingUnavailable = errors.New("ranking service unavailable")

const maxSuggestions = 5

// EntityNotFoundError reports a name that did not resolve in the graph,
// along with up to five substring-matched alternatives.
type EntityNotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *EntityNotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("entity not found: %s", e.Name)
	}
	return fmt.Sprintf("entity not found: %s (did you mean: %s)", e.Name, strings.Join(e.Suggestions, ", "))
}

// Resolver maps a free-text query to concrete entity identities. The
// candidate pool is fetched deterministically from the graph; only the
// relevance judgment is delegated to the reasoning service.
type Resolver struct {
	nodes    database.NodesDBHandlerFunctions
	edges    database.EdgesDBHandlerFunctions
	reasoner llm.Reasoner
	logger   *slog.Logger
}

// NewResolver creates a new entity resolver.
func NewResolver(nodes database.NodesDBHandlerFunctions, edges database.EdgesDBHandlerFunctions, reasoner llm.Reasoner, logger *slog.Logger) *Resolver {
	return &Resolver{
		nodes:    nodes,
		edges:    edges,
		reasoner: reasoner,
		logger:   logger,
	}
}

// Resolution is the outcome of a ranking request. A failed ranking call
// produces an empty but valid Resolution, never an error. Callers treat
// "nothing relevant" and "ranker unavailable" identically.
type Resolution struct {
	Entities []*model.ResolvedEntity
	Message  string
}

// ResolveTopK asks the ranker for up to topK relevant entities and expands
// the relationships of every verified match.
func (r *Resolver) ResolveTopK(ctx context.Context, query string, topK int, inventoryLimit int) *Resolution {
	inventory, err := r.nodes.SelectNodeNames(inventoryLimit)
	if err != nil {
		r.logger.Warn("Entity inventory unavailable", slog.String("error", err.Error()))
		return &Resolution{Message: "entity inventory unavailable"}
	}
	if len(inventory) == 0 {
		return &Resolution{Message: "no entities found in database"}
	}

	response, err := r.reasoner.Complete(ctx, rankerSystemPrompt, topKPrompt(query, topK, inventory))
	if err != nil {
		r.logger.Warn("Entity ranking unavailable", slog.Any("error", fmt.Errorf("%w: %v", ErrRankingUnavailable, err)))
		return &Resolution{Message: ErrRankingUnavailable.Error()}
	}

	payload, ok := extractJSON(response, '[', ']')
	if !ok {
		return &Resolution{Message: "LLM could not identify relevant entities for this query"}
	}

	var candidates []*model.ResolvedEntity
	err = json.Unmarshal([]byte(payload), &candidates)
	if err != nil {
		r.logger.Warn("Unparseable ranking response", slog.String("error", err.Error()))
		return &Resolution{Message: "could not parse ranking response"}
	}

	resolution := &Resolution{}
	for _, candidate := range candidates {
		if candidate == nil || candidate.Name == "" {
			continue
		}
		r.verify(candidate)
		resolution.Entities = append(resolution.Entities, candidate)
		if len(resolution.Entities) == topK {
			break
		}
	}
	if len(resolution.Entities) == 0 {
		resolution.Message = "LLM could not identify relevant entities for this query"
	}
	return resolution
}

// ResolveBest asks the ranker for the single best match for the query.
func (r *Resolver) ResolveBest(ctx context.Context, query string, inventoryLimit int) *Resolution {
	inventory, err := r.nodes.SelectNodeNames(inventoryLimit)
	if err != nil {
		r.logger.Warn("Entity inventory unavailable", slog.String("error", err.Error()))
		return &Resolution{Message: "entity inventory unavailable"}
	}
	if len(inventory) == 0 {
		return &Resolution{Message: "no entities found in database"}
	}

	response, err := r.reasoner.Complete(ctx, rankerSystemPrompt, bestPrompt(query, inventory))
	if err != nil {
		r.logger.Warn("Entity ranking unavailable", slog.Any("error", fmt.Errorf("%w: %v", ErrRankingUnavailable, err)))
		return &Resolution{Message: ErrRankingUnavailable.Error()}
	}

	payload, ok := extractJSON(response, '{', '}')
	if !ok {
		return &Resolution{Message: "LLM could not identify a relevant entity for this query"}
	}

	candidate := &model.ResolvedEntity{}
	err = json.Unmarshal([]byte(payload), candidate)
	if err != nil || candidate.Name == "" {
		return &Resolution{Message: "could not parse ranking response"}
	}

	r.verify(candidate)
	return &Resolution{Entities: []*model.ResolvedEntity{candidate}}
}

// ResolveDirect looks up an already-known entity name without ranking and
// expands its relationships. Unlike the ranked paths this returns an error,
// an EntityNotFoundError with substring suggestions when nothing matches.
func (r *Resolver) ResolveDirect(name string) (*model.ResolvedEntity, error) {
	matches, err := r.nodes.SelectNodesByName(name, 1)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, &EntityNotFoundError{Name: name, Suggestions: r.suggest(name)}
	}

	entity := matches[0]
	resolved := &model.ResolvedEntity{
		Name:   entity.Name,
		Kind:   string(entity.Kind),
		Entity: entity,
	}
	resolved.Relations = r.expandRelations(entity.Name)
	return resolved, nil
}

// verify checks that a ranked name still exists in the graph. A missing
// entity keeps its slot with NotFound set instead of being discarded.
func (r *Resolver) verify(candidate *model.ResolvedEntity) {
	matches, err := r.nodes.SelectNodesByName(candidate.Name, 1)
	if err != nil || len(matches) == 0 {
		r.logger.Warn("Ranked entity not found in graph", slog.String("name", candidate.Name))
		candidate.NotFound = true
		candidate.Relations = &model.EntityRelations{}
		return
	}
	candidate.Entity = matches[0]
	candidate.Relations = r.expandRelations(candidate.Name)
}

var dependencyKinds = []model.RelationshipKind{
	model.RelationshipImports,
	model.RelationshipCalls,
	model.RelationshipInheritsFrom,
	model.RelationshipContains,
}

func (r *Resolver) expandRelations(name string) *model.EntityRelations {
	relations := &model.EntityRelations{}

	outgoing, err := r.edges.SelectEdgesFromNode(name, dependencyKinds)
	if err != nil {
		r.logger.Warn("Dependency expansion failed", slog.String("name", name), slog.String("error", err.Error()))
	} else {
		relations.Dependencies = outgoing
	}

	incoming, err := r.edges.SelectEdgesToNode(name, dependencyKinds)
	if err != nil {
		r.logger.Warn("Dependent expansion failed", slog.String("name", name), slog.String("error", err.Error()))
	} else {
		relations.Dependents = incoming
		for _, edge := range incoming {
			if edge.Kind == model.RelationshipContains {
				relations.Parents = append(relations.Parents, edge)
			}
		}
	}

	return relations
}

func (r *Resolver) suggest(name string) []string {
	matches, err := r.nodes.SelectNodesBySearch(name, maxSuggestions)
	if err != nil {
		return nil
	}
	suggestions := make([]string, 0, len(matches))
	for _, match := range matches {
		suggestions = append(suggestions, match.Name)
	}
	return suggestions
}

// extractJSON locates the first opening and last closing bracket in a
// response that may carry prose around the payload.
func extractJSON(response string, open byte, closing byte) (string, bool) {
	start := strings.IndexByte(response, open)
	end := strings.LastIndexByte(response, closing)
	if start < 0 || end <= start {
		return "", false
	}
	return response[start : end+1], true
}

func inventoryText(inventory []*model.EntityName) string {
	byKind := map[string][]string{}
	for _, entry := range inventory {
		byKind[entry.Kind] = append(byKind[entry.Kind], entry.Name)
	}

	kinds := make([]string, 0, len(byKind))
	for kind := range byKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	var builder strings.Builder
	builder.WriteString("Available entities in codebase:\n\n")
	for _, kind := range kinds {
		names := byKind[kind]
		sort.Strings(names)
		fmt.Fprintf(&builder, "%ss (%d):\n", kind, len(names))
		for _, name := range names {
			fmt.Fprintf(&builder, "  - %s\n", name)
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

func topKPrompt(query string, topK int, inventory []*model.EntityName) string {
	return fmt.Sprintf(`User Query: %q

Below is the COMPLETE list of all entities in the codebase. Your job is to find the TOP %d entities that match this query.

%s
INSTRUCTIONS:
1. Search for entities that DIRECTLY match the query keywords
2. Look for exact name matches, substring matches, or semantically related entities
3. Return the TOP %d most relevant entities (or fewer if not found)
4. Rank by relevance to the query (highest confidence first)

CRITICAL RULES:
- Return ONLY a valid JSON array. No markdown, no preamble, no explanation.
- If you find NO entities, return an empty array: []

JSON Format:
[
  {"entity_name": "exact name from list", "entity_type": "Class/Function/Method/etc", "confidence": 0.95, "reason": "why this matches"}
]`, query, topK, inventoryText(inventory), topK)
}

func bestPrompt(query string, inventory []*model.EntityName) string {
	return fmt.Sprintf(`Given the user query and list of available entities, find the BEST matching entity.

User Query: %q

%s
Return ONLY a JSON object with:
{"entity_name": "exact name from list", "entity_type": "Class/Function/Method/etc", "confidence": 0.95, "reason": "why this is the best match"}

If no good match exists, return the closest semantic match or related entity.`, query, inventoryText(inventory))
}
