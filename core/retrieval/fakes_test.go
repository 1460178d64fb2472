package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/codectx/repograph/database"
	"github.com/codectx/repograph/helper"
	"github.com/codectx/repograph/model"
	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return helper.NewDefaultLogger(os.Stdout, slog.LevelWarn)
}

// stubReasoner returns a canned response or error and records its calls.
type stubReasoner struct {
	response string
	err      error
	calls    int
	lastUser string
}

func (s *stubReasoner) Complete(ctx context.Context, system string, user string) (string, error) {
	s.calls++
	s.lastUser = user
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type stubNodes struct {
	names      []*model.EntityName
	namesErr   error
	entities   map[string]*model.Entity
	searchable []*model.Entity
}

func newStubNodes(entities ...*model.Entity) *stubNodes {
	nodes := &stubNodes{entities: map[string]*model.Entity{}}
	for _, entity := range entities {
		nodes.entities[strings.ToLower(entity.Name)] = entity
		nodes.names = append(nodes.names, &model.EntityName{Name: entity.Name, Kind: string(entity.Kind)})
		nodes.searchable = append(nodes.searchable, entity)
	}
	return nodes
}

func (s *stubNodes) UpsertNode(entity *model.Entity) error { return nil }

func (s *stubNodes) NodeExists(name string) (bool, error) {
	_, ok := s.entities[strings.ToLower(name)]
	return ok, nil
}

func (s *stubNodes) SelectNodeByIdentity(name string, module string, kind model.EntityKind) (*model.Entity, error) {
	return s.entities[strings.ToLower(name)], nil
}

func (s *stubNodes) SelectNodesByName(name string, limit int) ([]*model.Entity, error) {
	entity, ok := s.entities[strings.ToLower(name)]
	if !ok {
		return nil, nil
	}
	return []*model.Entity{entity}, nil
}

func (s *stubNodes) SelectNodeNames(limit int) ([]*model.EntityName, error) {
	if s.namesErr != nil {
		return nil, s.namesErr
	}
	if len(s.names) > limit {
		return s.names[:limit], nil
	}
	return s.names, nil
}

func (s *stubNodes) SelectNodesBySearch(term string, limit int) ([]*model.Entity, error) {
	var matches []*model.Entity
	for _, entity := range s.searchable {
		if strings.Contains(strings.ToLower(entity.Name), strings.ToLower(term)) {
			matches = append(matches, entity)
		}
		if len(matches) == limit {
			break
		}
	}
	return matches, nil
}

func (s *stubNodes) CountNodesByKind() (map[string]int, error) { return map[string]int{}, nil }
func (s *stubNodes) DeleteAllNodes() error                     { return nil }

type stubEdges struct {
	outgoing map[string][]*model.GraphEdge
	incoming map[string][]*model.GraphEdge
}

func newStubEdges() *stubEdges {
	return &stubEdges{
		outgoing: map[string][]*model.GraphEdge{},
		incoming: map[string][]*model.GraphEdge{},
	}
}

func (s *stubEdges) add(source string, kind model.RelationshipKind, target string) {
	edge := &model.GraphEdge{SourceName: source, TargetName: target, Kind: kind}
	s.outgoing[source] = append(s.outgoing[source], edge)
	s.incoming[target] = append(s.incoming[target], edge)
}

func filterEdges(edges []*model.GraphEdge, kinds []model.RelationshipKind) []*model.GraphEdge {
	if len(kinds) == 0 {
		return edges
	}
	var filtered []*model.GraphEdge
	for _, edge := range edges {
		for _, kind := range kinds {
			if edge.Kind == kind {
				filtered = append(filtered, edge)
				break
			}
		}
	}
	return filtered
}

func (s *stubEdges) UpsertEdge(rel *model.Relationship) (int, error) { return 0, nil }

func (s *stubEdges) SelectEdgesFromNode(name string, kinds []model.RelationshipKind) ([]*model.GraphEdge, error) {
	return filterEdges(s.outgoing[name], kinds), nil
}

func (s *stubEdges) SelectEdgesToNode(name string, kinds []model.RelationshipKind) ([]*model.GraphEdge, error) {
	return filterEdges(s.incoming[name], kinds), nil
}

func (s *stubEdges) SelectAllEdges(kinds []model.RelationshipKind) ([]*model.GraphEdge, error) {
	var all []*model.GraphEdge
	for _, edges := range s.outgoing {
		all = append(all, filterEdges(edges, kinds)...)
	}
	return all, nil
}

func (s *stubEdges) CountEdgesByKind() (map[string]int, error) { return map[string]int{}, nil }
func (s *stubEdges) DeleteAllEdges() error                     { return nil }

type stubChunks struct {
	results []*model.CodeChunk
	err     error
}

func (s *stubChunks) UpsertChunk(chunk *model.CodeChunk) error { return nil }

func (s *stubChunks) SelectChunksBySimilarity(embedding []float32, repoID string, topK int) ([]*model.CodeChunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) > topK {
		return s.results[:topK], nil
	}
	return s.results, nil
}

func (s *stubChunks) DeleteChunksByRepo(repoID string) (int, error) { return 0, nil }
func (s *stubChunks) CountChunks() (int, error)                     { return len(s.results), nil }

type stubConversations struct {
	turns []*model.ConversationTurn
	err   error
}

func (s *stubConversations) InsertTurn(turn *model.ConversationTurn) error {
	s.turns = append(s.turns, turn)
	return nil
}

func (s *stubConversations) SelectRecentTurns(sessionID *uuid.UUID, limit int) ([]*model.ConversationTurn, error) {
	if s.err != nil {
		return nil, s.err
	}
	var matches []*model.ConversationTurn
	for _, turn := range s.turns {
		if sessionID == nil || turn.SessionID == *sessionID {
			matches = append(matches, turn)
		}
		if len(matches) == limit {
			break
		}
	}
	return matches, nil
}

func identityEmbed(texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{1, 0, 0}
	}
	return embeddings, nil
}

func failingEmbed(texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("embedding model unavailable")
}

var (
	_ database.NodesDBHandlerFunctions         = &stubNodes{}
	_ database.EdgesDBHandlerFunctions         = &stubEdges{}
	_ database.ChunksDBHandlerFunctions        = &stubChunks{}
	_ database.ConversationsDBHandlerFunctions = &stubConversations{}
)
