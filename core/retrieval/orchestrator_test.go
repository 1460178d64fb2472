package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/codectx/repograph/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(
	nodes *stubNodes,
	edges *stubEdges,
	reasoner *stubReasoner,
	chunks *stubChunks,
	conversations *stubConversations,
) *Orchestrator {
	resolver := NewResolver(nodes, edges, reasoner, testLogger())
	return NewOrchestrator(resolver, chunks, conversations, identityEmbed, testLogger())
}

func searchChunk(filePath string, score float64) *model.CodeChunk {
	return &model.CodeChunk{
		ChunkID:   model.NewChunkID("demo", filePath, 0),
		RepoID:    "demo",
		FilePath:  filePath,
		StartLine: 1,
		EndLine:   50,
		Content:   "def handler():\n    pass\n",
		Score:     score,
	}
}

func TestOrchestratorScenarioPriority(t *testing.T) {
	nodes := newStubNodes(testEntity("AuthService", model.EntityKindClass))
	edges := newStubEdges()

	t.Run("Ranked entities win over everything", func(t *testing.T) {
		reasoner := &stubReasoner{response: `[{"entity_name": "AuthService", "entity_type": "Class", "confidence": 0.9}]`}
		chunks := &stubChunks{results: []*model.CodeChunk{searchChunk("app/auth.py", 0.91)}}
		orchestrator := newTestOrchestrator(nodes, edges, reasoner, chunks, &stubConversations{})

		config := model.DefaultQueryConfig()
		config.EntityName = "AuthService"
		result := orchestrator.Retrieve(context.Background(), "how does auth work", "demo", config)

		assert.Equal(t, model.ScenarioMultiEntityAnalysis, result.Scenario)
		require.Len(t, result.Entities, 1)
		assert.Equal(t, "AuthService", result.Entities[0].Name)
		assert.Len(t, result.Chunks, 1, "Expected semantic results to be kept alongside ranked entities")
	})

	t.Run("Direct entity when ranking returns nothing", func(t *testing.T) {
		reasoner := &stubReasoner{response: "[]"}
		chunks := &stubChunks{results: []*model.CodeChunk{searchChunk("app/auth.py", 0.91)}}
		orchestrator := newTestOrchestrator(nodes, edges, reasoner, chunks, &stubConversations{})

		config := model.DefaultQueryConfig()
		config.EntityName = "AuthService"
		result := orchestrator.Retrieve(context.Background(), "how does auth work", "demo", config)

		assert.Equal(t, model.ScenarioDirectEntity, result.Scenario)
		require.Len(t, result.Entities, 1)
		assert.Equal(t, "AuthService", result.Entities[0].Name)
	})

	t.Run("Semantic only when graph paths fail", func(t *testing.T) {
		reasoner := &stubReasoner{err: fmt.Errorf("ranking unavailable")}
		chunks := &stubChunks{results: []*model.CodeChunk{searchChunk("app/auth.py", 0.91)}}
		orchestrator := newTestOrchestrator(nodes, edges, reasoner, chunks, &stubConversations{})

		result := orchestrator.Retrieve(context.Background(), "how does auth work", "demo", model.DefaultQueryConfig())

		assert.Equal(t, model.ScenarioSemanticOnly, result.Scenario)
		assert.Empty(t, result.Entities)
		assert.Len(t, result.Chunks, 1)
	})

	t.Run("Entity name unknown is not looked up directly", func(t *testing.T) {
		reasoner := &stubReasoner{response: "[]"}
		chunks := &stubChunks{results: []*model.CodeChunk{searchChunk("app/auth.py", 0.91)}}
		orchestrator := newTestOrchestrator(nodes, edges, reasoner, chunks, &stubConversations{})

		config := model.DefaultQueryConfig()
		config.EntityName = "unknown"
		result := orchestrator.Retrieve(context.Background(), "anything", "demo", config)

		assert.Equal(t, model.ScenarioSemanticOnly, result.Scenario)
	})
}

func TestOrchestratorMemoryFallback(t *testing.T) {
	nodes := newStubNodes()
	edges := newStubEdges()

	t.Run("Recent turns as last resort", func(t *testing.T) {
		sessionID := uuid.New()
		conversations := &stubConversations{turns: []*model.ConversationTurn{
			{SessionID: sessionID, Role: "user", Content: "what does AuthService do?"},
			{SessionID: sessionID, Role: "assistant", Content: "It validates credentials."},
		}}
		reasoner := &stubReasoner{response: "[]"}
		orchestrator := newTestOrchestrator(nodes, edges, reasoner, &stubChunks{}, conversations)

		config := model.DefaultQueryConfig()
		config.SessionID = &sessionID
		result := orchestrator.Retrieve(context.Background(), "and what else?", "demo", config)

		assert.Equal(t, model.ScenarioMemoryFallback, result.Scenario)
		assert.Len(t, result.Turns, 2)
		assert.Equal(t, messageMemoryContext, result.Message)
	})

	t.Run("No results and no memory", func(t *testing.T) {
		reasoner := &stubReasoner{response: "[]"}
		orchestrator := newTestOrchestrator(nodes, edges, reasoner, &stubChunks{}, &stubConversations{})

		config := model.DefaultQueryConfig()
		config.EntityName = "Unknown123"
		result := orchestrator.Retrieve(context.Background(), "tell me about Unknown123", "demo", config)

		assert.Equal(t, model.ScenarioMemoryFallback, result.Scenario)
		assert.Empty(t, result.Entities)
		assert.Empty(t, result.Chunks)
		assert.Empty(t, result.Turns)
		assert.Equal(t, messageNoMemory, result.Message)
	})

	t.Run("Memory lookup failure still succeeds", func(t *testing.T) {
		reasoner := &stubReasoner{response: "[]"}
		conversations := &stubConversations{err: fmt.Errorf("connection refused")}
		orchestrator := newTestOrchestrator(nodes, edges, reasoner, &stubChunks{}, conversations)

		result := orchestrator.Retrieve(context.Background(), "anything", "demo", model.DefaultQueryConfig())

		assert.Equal(t, model.ScenarioMemoryFallback, result.Scenario)
		assert.Equal(t, messageNoMemory, result.Message)
	})
}

func TestOrchestratorFailureIsolation(t *testing.T) {
	nodes := newStubNodes(testEntity("AuthService", model.EntityKindClass))
	edges := newStubEdges()

	t.Run("Semantic failure does not break ranked lookup", func(t *testing.T) {
		reasoner := &stubReasoner{response: `[{"entity_name": "AuthService", "entity_type": "Class", "confidence": 0.9}]`}
		chunks := &stubChunks{err: fmt.Errorf("vector index offline")}
		orchestrator := newTestOrchestrator(nodes, edges, reasoner, chunks, &stubConversations{})

		result := orchestrator.Retrieve(context.Background(), "auth", "demo", model.DefaultQueryConfig())

		assert.Equal(t, model.ScenarioMultiEntityAnalysis, result.Scenario)
		assert.Empty(t, result.Chunks)
	})

	t.Run("Embedding failure degrades to graph results", func(t *testing.T) {
		reasoner := &stubReasoner{response: `[{"entity_name": "AuthService", "entity_type": "Class", "confidence": 0.9}]`}
		resolver := NewResolver(nodes, edges, reasoner, testLogger())
		orchestrator := NewOrchestrator(resolver, &stubChunks{results: []*model.CodeChunk{searchChunk("a.py", 0.5)}}, &stubConversations{}, failingEmbed, testLogger())

		result := orchestrator.Retrieve(context.Background(), "auth", "demo", model.DefaultQueryConfig())

		assert.Equal(t, model.ScenarioMultiEntityAnalysis, result.Scenario)
		assert.Empty(t, result.Chunks)
	})
}
