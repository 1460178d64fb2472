package model

import "github.com/google/uuid"

// IndexConfig represents configuration for a repository indexing run
type IndexConfig struct {
	// Chunking parameters
	ChunkSize    int `json:"chunk_size"`    // Lines per chunk
	ChunkOverlap int `json:"chunk_overlap"` // Overlapping lines between chunks

	// Batch sizes for the embedding pipeline
	EmbedBatchSize  int `json:"embed_batch_size"`
	UpsertBatchSize int `json:"upsert_batch_size"`

	// Path substrings that mark a file as a test file to be skipped
	SkipPathSubstrings []string `json:"skip_path_substrings,omitempty"`
}

// DefaultIndexConfig returns a sensible default configuration
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		ChunkSize:          650,
		ChunkOverlap:       50,
		EmbedBatchSize:     32,
		UpsertBatchSize:    100,
		SkipPathSubstrings: []string{"test_", "_test.", "/tests/"},
	}
}

// QueryConfig represents configuration for a retrieval query
type QueryConfig struct {
	// Ranking parameters
	TopK           int `json:"top_k"`           // Candidates requested from the ranker
	InventoryLimit int `json:"inventory_limit"` // Entity names offered to the ranker

	// Semantic search parameters
	SemanticTopK int `json:"semantic_top_k"`

	// Memory fallback
	MemoryTurns int        `json:"memory_turns"` // Prior turns pulled as last resort
	SessionID   *uuid.UUID `json:"session_id,omitempty"`

	// Optional already-extracted primary entity name
	EntityName string `json:"entity_name,omitempty"`
}

// DefaultQueryConfig returns a sensible default configuration
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:           5,
		InventoryLimit: 200,
		SemanticTopK:   5,
		MemoryTurns:    6,
	}
}
