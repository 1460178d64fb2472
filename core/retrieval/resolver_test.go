package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/codectx/repograph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntity(name string, kind model.EntityKind) *model.Entity {
	return &model.Entity{Name: name, Kind: kind, QualifiedModule: "app.services"}
}

func TestResolverResolveTopK(t *testing.T) {
	nodes := newStubNodes(
		testEntity("AuthService", model.EntityKindClass),
		testEntity("login", model.EntityKindMethod),
		testEntity("hash_password", model.EntityKindFunction),
	)
	edges := newStubEdges()
	edges.add("AuthService", model.RelationshipCalls, "hash_password")
	edges.add("app.services", model.RelationshipContains, "AuthService")

	t.Run("Ranked entities with relationships", func(t *testing.T) {
		reasoner := &stubReasoner{response: `Here are the matches:
[
  {"entity_name": "AuthService", "entity_type": "Class", "confidence": 0.95, "reason": "direct match"},
  {"entity_name": "login", "entity_type": "Method", "confidence": 0.7, "reason": "related"}
]
Hope that helps!`}
		resolver := NewResolver(nodes, edges, reasoner, testLogger())

		resolution := resolver.ResolveTopK(context.Background(), "how does auth work", 5, 200)
		require.Len(t, resolution.Entities, 2)

		first := resolution.Entities[0]
		assert.Equal(t, "AuthService", first.Name)
		assert.Equal(t, 0.95, first.Confidence)
		assert.False(t, first.NotFound)
		require.NotNil(t, first.Relations)
		require.Len(t, first.Relations.Dependencies, 1)
		assert.Equal(t, "hash_password", first.Relations.Dependencies[0].TargetName)
		require.Len(t, first.Relations.Parents, 1)
		assert.Equal(t, "app.services", first.Relations.Parents[0].SourceName)
	})

	t.Run("Unknown ranked name kept with not found flag", func(t *testing.T) {
		reasoner := &stubReasoner{response: `[{"entity_name": "Phantom", "entity_type": "Class", "confidence": 0.9, "reason": "guess"}]`}
		resolver := NewResolver(nodes, edges, reasoner, testLogger())

		resolution := resolver.ResolveTopK(context.Background(), "phantom", 5, 200)
		require.Len(t, resolution.Entities, 1)
		assert.True(t, resolution.Entities[0].NotFound)
		assert.Nil(t, resolution.Entities[0].Entity)
	})

	t.Run("Reasoner failure degrades to empty resolution", func(t *testing.T) {
		reasoner := &stubReasoner{err: fmt.Errorf("timeout")}
		resolver := NewResolver(nodes, edges, reasoner, testLogger())

		resolution := resolver.ResolveTopK(context.Background(), "anything", 5, 200)
		assert.Empty(t, resolution.Entities)
		assert.NotEmpty(t, resolution.Message)
	})

	t.Run("Prose without JSON degrades to empty resolution", func(t *testing.T) {
		reasoner := &stubReasoner{response: "I cannot find anything relevant."}
		resolver := NewResolver(nodes, edges, reasoner, testLogger())

		resolution := resolver.ResolveTopK(context.Background(), "anything", 5, 200)
		assert.Empty(t, resolution.Entities)
	})

	t.Run("Malformed JSON degrades to empty resolution", func(t *testing.T) {
		reasoner := &stubReasoner{response: `[{"entity_name": "AuthService", `}
		resolver := NewResolver(nodes, edges, reasoner, testLogger())

		resolution := resolver.ResolveTopK(context.Background(), "anything", 5, 200)
		assert.Empty(t, resolution.Entities)
	})

	t.Run("Candidates truncated to top k", func(t *testing.T) {
		reasoner := &stubReasoner{response: `[
			{"entity_name": "AuthService", "entity_type": "Class", "confidence": 0.9},
			{"entity_name": "login", "entity_type": "Method", "confidence": 0.8},
			{"entity_name": "hash_password", "entity_type": "Function", "confidence": 0.7}
		]`}
		resolver := NewResolver(nodes, edges, reasoner, testLogger())

		resolution := resolver.ResolveTopK(context.Background(), "auth", 2, 200)
		assert.Len(t, resolution.Entities, 2)
	})

	t.Run("Empty inventory skips the reasoner", func(t *testing.T) {
		reasoner := &stubReasoner{response: "[]"}
		resolver := NewResolver(newStubNodes(), edges, reasoner, testLogger())

		resolution := resolver.ResolveTopK(context.Background(), "anything", 5, 200)
		assert.Empty(t, resolution.Entities)
		assert.Zero(t, reasoner.calls)
	})
}

func TestResolverResolveBest(t *testing.T) {
	nodes := newStubNodes(testEntity("AuthService", model.EntityKindClass))
	edges := newStubEdges()

	t.Run("Single best match", func(t *testing.T) {
		reasoner := &stubReasoner{response: `The best match is:
{"entity_name": "AuthService", "entity_type": "Class", "confidence": 0.92, "reason": "name match"}`}
		resolver := NewResolver(nodes, edges, reasoner, testLogger())

		resolution := resolver.ResolveBest(context.Background(), "auth service", 200)
		require.Len(t, resolution.Entities, 1)
		assert.Equal(t, "AuthService", resolution.Entities[0].Name)
		assert.Equal(t, 0.92, resolution.Entities[0].Confidence)
	})

	t.Run("Reasoner failure degrades to empty resolution", func(t *testing.T) {
		reasoner := &stubReasoner{err: fmt.Errorf("unavailable")}
		resolver := NewResolver(nodes, edges, reasoner, testLogger())

		resolution := resolver.ResolveBest(context.Background(), "auth service", 200)
		assert.Empty(t, resolution.Entities)
		assert.NotEmpty(t, resolution.Message)
	})
}

func TestResolverResolveDirect(t *testing.T) {
	nodes := newStubNodes(
		testEntity("AuthService", model.EntityKindClass),
		testEntity("AuthMiddleware", model.EntityKindClass),
		testEntity("authenticate", model.EntityKindFunction),
	)
	edges := newStubEdges()
	edges.add("AuthService", model.RelationshipCalls, "authenticate")
	reasoner := &stubReasoner{}
	resolver := NewResolver(nodes, edges, reasoner, testLogger())

	t.Run("Known entity with relationships", func(t *testing.T) {
		resolved, err := resolver.ResolveDirect("AuthService")
		require.NoError(t, err)
		assert.Equal(t, "AuthService", resolved.Name)
		assert.Equal(t, "Class", resolved.Kind)
		require.NotNil(t, resolved.Relations)
		assert.Len(t, resolved.Relations.Dependencies, 1)
		assert.Zero(t, reasoner.calls, "Expected direct lookup to not involve the reasoner")
	})

	t.Run("Unknown entity returns suggestions", func(t *testing.T) {
		_, err := resolver.ResolveDirect("AuthServce")
		require.Error(t, err)

		var notFound *EntityNotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, "AuthServce", notFound.Name)
		assert.Contains(t, notFound.Error(), "entity not found")
	})

	t.Run("Suggestions come from substring search", func(t *testing.T) {
		_, err := resolver.ResolveDirect("Auth")
		require.Error(t, err)

		var notFound *EntityNotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Len(t, notFound.Suggestions, 3)
		assert.Contains(t, notFound.Suggestions, "AuthService")
	})
}

func TestExtractJSON(t *testing.T) {
	payload, ok := extractJSON(`prefix {"a": 1} suffix`, '{', '}')
	assert.True(t, ok)
	assert.Equal(t, `{"a": 1}`, payload)

	_, ok = extractJSON("no json here", '[', ']')
	assert.False(t, ok)

	payload, ok = extractJSON(`[1] and [2]`, '[', ']')
	assert.True(t, ok)
	assert.Equal(t, `[1] and [2]`, payload)
}
