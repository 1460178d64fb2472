package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/codectx/repograph/core/pipeline"
	"github.com/codectx/repograph/database"
	"github.com/codectx/repograph/model"
)

const (
	messageMemoryContext = "No search results, using conversation memory as context"
	messageNoMemory      = "No search results and no memory context available"
)

// ErrAllSourcesFailed marks a query for which neither the graph nor the
// vector index produced anything. It triggers the memory fallback and is
// never returned to the caller.
var ErrAllSourcesFailed = errors.New("all retrieval sources came back empty")

// Orchestrator coordinates the query-time fan-out to the graph, the vector
// index and conversation memory. It always produces a usable
// RetrievalContext; degradation shows up as a scenario tag and message
// text, never as an error.
type Orchestrator struct {
	resolver      *Resolver
	chunks        database.ChunksDBHandlerFunctions
	conversations database.ConversationsDBHandlerFunctions
	embed         pipeline.EmbedFunc
	logger        *slog.Logger
}

// NewOrchestrator creates a new retrieval orchestrator.
func NewOrchestrator(
	resolver *Resolver,
	chunks database.ChunksDBHandlerFunctions,
	conversations database.ConversationsDBHandlerFunctions,
	embed pipeline.EmbedFunc,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		resolver:      resolver,
		chunks:        chunks,
		conversations: conversations,
		embed:         embed,
		logger:        logger,
	}
}

// Retrieve dispatches the ranked entity lookup, the semantic chunk search
// and (when an entity name is given) the direct entity lookup concurrently,
// waits for all of them to settle and classifies the combined outcome.
// In-flight lookups are not cancelled when a sibling fails.
func (o *Orchestrator) Retrieve(ctx context.Context, query string, repoID string, config model.QueryConfig) *model.RetrievalContext {
	var (
		ranked    *Resolution
		direct    *model.ResolvedEntity
		directErr error
		chunks    []*model.CodeChunk
		chunksErr error
	)

	hasEntityName := config.EntityName != "" && !strings.EqualFold(config.EntityName, "unknown")

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		ranked = o.resolver.ResolveTopK(ctx, query, config.TopK, config.InventoryLimit)
	}()

	go func() {
		defer wg.Done()
		chunks, chunksErr = o.semanticSearch(query, repoID, config.SemanticTopK)
	}()

	if hasEntityName {
		wg.Add(1)
		go func() {
			defer wg.Done()
			direct, directErr = o.resolver.ResolveDirect(config.EntityName)
		}()
	}

	wg.Wait()

	if chunksErr != nil {
		o.logger.Warn("Semantic search failed", slog.String("error", chunksErr.Error()))
		chunks = nil
	}
	if directErr != nil {
		o.logger.Warn("Direct entity lookup failed",
			slog.String("entity", config.EntityName),
			slog.String("error", directErr.Error()))
		direct = nil
	}

	result := &model.RetrievalContext{Query: query, Chunks: chunks}

	switch {
	case len(ranked.Entities) > 0:
		result.Scenario = model.ScenarioMultiEntityAnalysis
		result.Entities = ranked.Entities
	case direct != nil:
		result.Scenario = model.ScenarioDirectEntity
		result.Entities = []*model.ResolvedEntity{direct}
	case len(chunks) > 0:
		result.Scenario = model.ScenarioSemanticOnly
	default:
		o.logger.Warn("Falling back to conversation memory", slog.Any("error", ErrAllSourcesFailed))
		o.memoryFallback(result, config)
	}

	o.logger.Info("Retrieval settled",
		slog.String("scenario", string(result.Scenario)),
		slog.Int("entities", len(result.Entities)),
		slog.Int("chunks", len(result.Chunks)),
		slog.Int("turns", len(result.Turns)))

	return result
}

func (o *Orchestrator) semanticSearch(query string, repoID string, topK int) ([]*model.CodeChunk, error) {
	embeddings, err := o.embed([]string{query})
	if err != nil {
		return nil, err
	}
	return o.chunks.SelectChunksBySimilarity(embeddings[0], repoID, topK)
}

// memoryFallback pulls the most recent persisted turns as last-resort
// context. Without a session the lookup is global across sessions.
func (o *Orchestrator) memoryFallback(result *model.RetrievalContext, config model.QueryConfig) {
	result.Scenario = model.ScenarioMemoryFallback
	result.Chunks = nil

	turns, err := o.conversations.SelectRecentTurns(config.SessionID, config.MemoryTurns)
	if err != nil {
		o.logger.Warn("Memory lookup failed", slog.String("error", err.Error()))
		turns = nil
	}

	if len(turns) == 0 {
		result.Message = messageNoMemory
		return
	}
	result.Turns = turns
	result.Message = messageMemoryContext
}
