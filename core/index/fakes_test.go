package index

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/codectx/repograph/database"
	"github.com/codectx/repograph/helper"
	"github.com/codectx/repograph/model"
)

func testLogger() *slog.Logger {
	return helper.NewDefaultLogger(os.Stdout, slog.LevelWarn)
}

// fakeNodes is an in-memory stand-in for the nodes handler, keyed by
// the entity identity tuple.
type fakeNodes struct {
	byIdentity map[string]*model.Entity
	nextID     int
	failNames  map[string]bool
}

func newFakeNodes() *fakeNodes {
	return &fakeNodes{
		byIdentity: map[string]*model.Entity{},
		failNames:  map[string]bool{},
	}
}

func (f *fakeNodes) UpsertNode(entity *model.Entity) error {
	if f.failNames[entity.Name] {
		return fmt.Errorf("simulated write failure for %s", entity.Name)
	}
	if existing, ok := f.byIdentity[entity.Identity()]; ok {
		entity.ID = existing.ID
		return nil
	}
	f.nextID++
	entity.ID = f.nextID
	stored := *entity
	f.byIdentity[entity.Identity()] = &stored
	return nil
}

func (f *fakeNodes) NodeExists(name string) (bool, error) {
	for _, entity := range f.byIdentity {
		if entity.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNodes) SelectNodeByIdentity(name string, module string, kind model.EntityKind) (*model.Entity, error) {
	key := fmt.Sprintf("%s|%s|%s", name, module, kind)
	if entity, ok := f.byIdentity[key]; ok {
		return entity, nil
	}
	return nil, fmt.Errorf("node not found")
}

func (f *fakeNodes) SelectNodesByName(name string, limit int) ([]*model.Entity, error) {
	var matching []*model.Entity
	for _, entity := range f.byIdentity {
		if entity.Name == name && len(matching) < limit {
			matching = append(matching, entity)
		}
	}
	return matching, nil
}

func (f *fakeNodes) SelectNodeNames(limit int) ([]*model.EntityName, error) {
	var names []*model.EntityName
	for _, entity := range f.byIdentity {
		switch entity.Kind {
		case model.EntityKindClass, model.EntityKindFunction, model.EntityKindMethod:
			if len(names) < limit {
				names = append(names, &model.EntityName{Name: entity.Name, Kind: string(entity.Kind)})
			}
		}
	}
	return names, nil
}

func (f *fakeNodes) SelectNodesBySearch(term string, limit int) ([]*model.Entity, error) {
	var matching []*model.Entity
	for _, entity := range f.byIdentity {
		if strings.Contains(strings.ToLower(entity.Name), strings.ToLower(term)) && len(matching) < limit {
			matching = append(matching, entity)
		}
	}
	return matching, nil
}

func (f *fakeNodes) CountNodesByKind() (map[string]int, error) {
	counts := map[string]int{}
	for _, entity := range f.byIdentity {
		counts[string(entity.Kind)]++
	}
	return counts, nil
}

func (f *fakeNodes) DeleteAllNodes() error {
	f.byIdentity = map[string]*model.Entity{}
	return nil
}

func (f *fakeNodes) kindOf(name string) (model.EntityKind, bool) {
	for _, entity := range f.byIdentity {
		if entity.Name == name {
			return entity.Kind, true
		}
	}
	return "", false
}

// fakeEdges mirrors the store-level deduplication on the
// (source, kind, target) triple and the missing endpoint error.
type fakeEdges struct {
	nodes  *fakeNodes
	edges  []*model.GraphEdge
	nextID int
}

func newFakeEdges(nodes *fakeNodes) *fakeEdges {
	return &fakeEdges{nodes: nodes}
}

func (f *fakeEdges) endpointExists(name string, kind model.EntityKind) bool {
	for _, entity := range f.nodes.byIdentity {
		if entity.Name == name && entity.Kind == kind {
			return true
		}
	}
	return false
}

func (f *fakeEdges) UpsertEdge(rel *model.Relationship) (int, error) {
	if !f.endpointExists(rel.SourceName, rel.SourceKind) || !f.endpointExists(rel.TargetName, rel.TargetKind) {
		return 0, database.ErrEdgeEndpointMissing
	}

	for _, edge := range f.edges {
		if edge.SourceName == rel.SourceName && edge.SourceKind == rel.SourceKind &&
			edge.TargetName == rel.TargetName && edge.TargetKind == rel.TargetKind &&
			edge.Kind == rel.Kind {
			return edge.ID, nil
		}
	}

	f.nextID++
	f.edges = append(f.edges, &model.GraphEdge{
		ID:         f.nextID,
		SourceName: rel.SourceName,
		SourceKind: rel.SourceKind,
		TargetName: rel.TargetName,
		TargetKind: rel.TargetKind,
		Kind:       rel.Kind,
	})
	return f.nextID, nil
}

func (f *fakeEdges) filter(match func(*model.GraphEdge) bool, kinds []model.RelationshipKind) []*model.GraphEdge {
	kindSet := map[model.RelationshipKind]bool{}
	for _, kind := range kinds {
		kindSet[kind] = true
	}

	var matching []*model.GraphEdge
	for _, edge := range f.edges {
		if !match(edge) {
			continue
		}
		if len(kindSet) > 0 && !kindSet[edge.Kind] {
			continue
		}
		matching = append(matching, edge)
	}
	return matching
}

func (f *fakeEdges) SelectEdgesFromNode(name string, kinds []model.RelationshipKind) ([]*model.GraphEdge, error) {
	return f.filter(func(edge *model.GraphEdge) bool { return edge.SourceName == name }, kinds), nil
}

func (f *fakeEdges) SelectEdgesToNode(name string, kinds []model.RelationshipKind) ([]*model.GraphEdge, error) {
	return f.filter(func(edge *model.GraphEdge) bool { return edge.TargetName == name }, kinds), nil
}

func (f *fakeEdges) SelectAllEdges(kinds []model.RelationshipKind) ([]*model.GraphEdge, error) {
	return f.filter(func(edge *model.GraphEdge) bool { return true }, kinds), nil
}

func (f *fakeEdges) CountEdgesByKind() (map[string]int, error) {
	counts := map[string]int{}
	for _, edge := range f.edges {
		counts[string(edge.Kind)]++
	}
	return counts, nil
}

func (f *fakeEdges) DeleteAllEdges() error {
	f.edges = nil
	return nil
}

func (f *fakeEdges) hasEdge(source, target string, kind model.RelationshipKind) bool {
	for _, edge := range f.edges {
		if edge.SourceName == source && edge.TargetName == target && edge.Kind == kind {
			return true
		}
	}
	return false
}

// fakeChunks collects upserted chunks in memory.
type fakeChunks struct {
	byChunkID map[string]*model.CodeChunk
	failIDs   map[string]bool
}

func newFakeChunks() *fakeChunks {
	return &fakeChunks{
		byChunkID: map[string]*model.CodeChunk{},
		failIDs:   map[string]bool{},
	}
}

func (f *fakeChunks) UpsertChunk(chunk *model.CodeChunk) error {
	if f.failIDs[chunk.ChunkID] {
		return fmt.Errorf("simulated write failure for %s", chunk.ChunkID)
	}
	stored := *chunk
	f.byChunkID[chunk.ChunkID] = &stored
	return nil
}

func (f *fakeChunks) SelectChunksBySimilarity(embedding []float32, repoID string, topK int) ([]*model.CodeChunk, error) {
	var matching []*model.CodeChunk
	for _, chunk := range f.byChunkID {
		if (repoID == "" || chunk.RepoID == repoID) && len(matching) < topK {
			matching = append(matching, chunk)
		}
	}
	return matching, nil
}

func (f *fakeChunks) DeleteChunksByRepo(repoID string) (int, error) {
	deleted := 0
	for id, chunk := range f.byChunkID {
		if chunk.RepoID == repoID {
			delete(f.byChunkID, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeChunks) CountChunks() (int, error) {
	return len(f.byChunkID), nil
}

var (
	_ database.NodesDBHandlerFunctions  = &fakeNodes{}
	_ database.EdgesDBHandlerFunctions  = &fakeEdges{}
	_ database.ChunksDBHandlerFunctions = &fakeChunks{}
)
