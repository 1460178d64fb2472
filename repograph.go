// Package repograph turns a source-code repository into a queryable
// structural graph and answers natural-language questions about it by
// combining graph lookups with semantic retrieval.
package repograph

import (
	"context"
	"log/slog"
	"os"

	"github.com/codectx/repograph/core/index"
	"github.com/codectx/repograph/core/pipeline"
	"github.com/codectx/repograph/core/retrieval"
	"github.com/codectx/repograph/database"
	"github.com/codectx/repograph/helper"
	"github.com/codectx/repograph/llm"
	"github.com/codectx/repograph/model"
	loadSql "github.com/codectx/repograph/sql"
	"github.com/google/uuid"
)

// RepoGraph provides a unified interface to the indexing pipeline, the
// graph and vector stores and the query-time retrieval stack.
type RepoGraph struct {
	DB            *helper.Database
	Nodes         *database.NodesDBHandler
	Edges         *database.EdgesDBHandler
	Chunks        *database.ChunksDBHandler
	Conversations *database.ConversationsDBHandler
	Engine        *index.Engine
	Embedder      *index.EmbedIndexer
	Orchestrator  *retrieval.Orchestrator
	Synthesizer   *retrieval.Synthesizer
	// Logging
	log *slog.Logger
}

// QueryResult is the outcome of one question against an indexed repository
type QueryResult struct {
	Answer   string         `json:"answer"`
	Scenario model.Scenario `json:"scenario"`
	Message  string         `json:"message,omitempty"`
	Entities int            `json:"entities"`
	Chunks   int            `json:"chunks"`
}

// NewRepoGraph creates a RepoGraph with all handlers initialized. The
// reasoner handles entity ranking and answer synthesis; embed turns text
// into vectors for the semantic index and query path.
func NewRepoGraph(config *helper.DatabaseConfiguration, reasoner llm.Reasoner, embed pipeline.EmbedFunc, embeddingDim int) (*RepoGraph, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("repograph", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	nodes, err := database.NewNodesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create nodes handler", err)
	}

	edges, err := database.NewEdgesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create edges handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	conversations, err := database.NewConversationsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create conversations handler", err)
	}

	indexConfig := model.DefaultIndexConfig()
	resolver := retrieval.NewResolver(nodes, edges, reasoner, logger)

	return &RepoGraph{
		DB:            db,
		Nodes:         nodes,
		Edges:         edges,
		Chunks:        chunks,
		Conversations: conversations,
		Engine:        index.NewEngine(nodes, edges, indexConfig, logger),
		Embedder:      index.NewEmbedIndexer(chunks, embed, indexConfig, logger),
		Orchestrator:  retrieval.NewOrchestrator(resolver, chunks, conversations, embed, logger),
		Synthesizer:   retrieval.NewSynthesizer(reasoner, logger),
		log:           logger,
	}, nil
}

// Close closes the database connection
func (r *RepoGraph) Close() error {
	if r.DB != nil && r.DB.Instance != nil {
		return r.DB.Instance.Close()
	}
	return nil
}

// IndexRepository parses all files into the graph and embeds them into
// the vector store. Per-item failures are reported in the returned stats.
func (r *RepoGraph) IndexRepository(ctx context.Context, repoID string, files []index.SourceFile) (*model.IndexStats, error) {
	stats, err := r.Engine.IndexFiles(ctx, repoID, files)
	if err != nil {
		return nil, helper.NewError("index repository", err)
	}

	_, _, err = r.EmbedRepository(repoID, files)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// EmbedRepository chunks and embeds the given files into the vector
// store without touching the graph. Returns stored and failed chunk
// counts.
func (r *RepoGraph) EmbedRepository(repoID string, files []index.SourceFile) (int, int, error) {
	stored, failed, err := r.Embedder.EmbedFiles(repoID, files)
	if err != nil {
		return stored, failed, helper.NewError("embed repository", err)
	}
	r.log.Info("Embedded repository",
		slog.String("repo_id", repoID),
		slog.Int("chunks_stored", stored),
		slog.Int("chunks_failed", failed))
	return stored, failed, nil
}

// Query answers a question against the indexed repository. Both the
// question and the synthesized answer are persisted as conversation
// turns, which feed the memory fallback of later queries.
func (r *RepoGraph) Query(ctx context.Context, query string, repoID string, config model.QueryConfig) (*QueryResult, error) {
	retrieved := r.Orchestrator.Retrieve(ctx, query, repoID, config)
	answer := r.Synthesizer.Synthesize(ctx, retrieved)

	r.storeConversation(config.SessionID, query, answer, retrieved.Scenario)

	return &QueryResult{
		Answer:   answer,
		Scenario: retrieved.Scenario,
		Message:  retrieved.Message,
		Entities: len(retrieved.Entities),
		Chunks:   len(retrieved.Chunks),
	}, nil
}

// storeConversation persists one user/assistant exchange. Persistence
// failures only degrade future memory fallbacks, so they are logged and
// swallowed.
func (r *RepoGraph) storeConversation(sessionID *uuid.UUID, query string, answer string, scenario model.Scenario) {
	session := uuid.New()
	if sessionID != nil {
		session = *sessionID
	}

	metadata := model.Metadata{"scenario": string(scenario)}
	turns := []*model.ConversationTurn{
		{SessionID: session, Role: "user", Content: query, Metadata: metadata},
		{SessionID: session, Role: "assistant", Content: answer, Metadata: metadata},
	}
	for _, turn := range turns {
		err := r.Conversations.InsertTurn(turn)
		if err != nil {
			r.log.Warn("Failed to persist conversation turn", slog.String("error", err.Error()))
			return
		}
	}
}

// Stats returns point-in-time totals of the persisted graph
func (r *RepoGraph) Stats() (*model.GraphStats, error) {
	nodesByKind, err := r.Nodes.CountNodesByKind()
	if err != nil {
		return nil, helper.NewError("count nodes", err)
	}
	edgesByKind, err := r.Edges.CountEdgesByKind()
	if err != nil {
		return nil, helper.NewError("count edges", err)
	}

	stats := &model.GraphStats{
		NodesByKind: nodesByKind,
		EdgesByKind: edgesByKind,
	}
	for _, count := range nodesByKind {
		stats.TotalNodes += count
	}
	for _, count := range edgesByKind {
		stats.TotalEdges += count
	}
	return stats, nil
}

// Clear wipes the graph and the repository's vector namespace.
// Conversation history is kept.
func (r *RepoGraph) Clear(repoID string) error {
	err := r.Edges.DeleteAllEdges()
	if err != nil {
		return helper.NewError("delete edges", err)
	}
	err = r.Nodes.DeleteAllNodes()
	if err != nil {
		return helper.NewError("delete nodes", err)
	}

	deleted, err := r.Chunks.DeleteChunksByRepo(repoID)
	if err != nil {
		return helper.NewError("delete chunks", err)
	}
	r.log.Info("Cleared index", slog.String("repo_id", repoID), slog.Int("chunks_deleted", deleted))
	return nil
}
