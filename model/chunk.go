package model

import (
	"fmt"
	"time"
)

// CodeChunk represents a fixed-size, overlapping line-range slice of a
// source file, the unit of semantic indexing. Lines are 1-indexed and
// inclusive. Chunk boundaries have no required alignment with entity
// boundaries.
type CodeChunk struct {
	ID        int       `json:"id,omitempty"`
	ChunkID   string    `json:"chunk_id"` // repo#filepath#n
	RepoID    string    `json:"repo_id"`
	FilePath  string    `json:"file_path"`
	StartLine int       `json:"start_line"`
	EndLine   int       `json:"end_line"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	// Results
	Score float64 `json:"score,omitempty"` // Cosine similarity from search
}

// NewChunkID builds the composite chunk identifier
func NewChunkID(repoID string, filePath string, sequence int) string {
	return fmt.Sprintf("%s#%s#%d", repoID, filePath, sequence)
}

// Preview returns the first n characters of the chunk content for display
func (c *CodeChunk) Preview(n int) string {
	if len(c.Content) <= n {
		return c.Content
	}
	return c.Content[:n] + "..."
}
