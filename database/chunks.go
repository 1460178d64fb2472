package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/codectx/repograph/helper"
	"github.com/codectx/repograph/model"
	loadSql "github.com/codectx/repograph/sql"
	"github.com/pgvector/pgvector-go"
)

// ChunksDBHandlerFunctions defines the interface for chunk database operations.
type ChunksDBHandlerFunctions interface {
	UpsertChunk(chunk *model.CodeChunk) error
	SelectChunksBySimilarity(embedding []float32, repoID string, topK int) ([]*model.CodeChunk, error)
	DeleteChunksByRepo(repoID string) (int, error)
	CountChunks() (int, error)
}

// ChunksDBHandler handles code chunk database operations
type ChunksDBHandler struct {
	db *helper.Database
}

// NewChunksDBHandler creates a new chunks database handler.
// embeddingDim fixes the vector dimension of the table at creation time.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	chunksDbHandler := &ChunksDBHandler{
		db: db,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return chunksDbHandler, nil
}

// CreateTable creates the 'code_chunks' table in the database.
// If the table already exists, it does not create it again.
func (h *ChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing code_chunks table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table code_chunks")

	return nil
}

// UpsertChunk inserts a chunk or replaces content and embedding for its chunk id
func (h *ChunksDBHandler) UpsertChunk(chunk *model.CodeChunk) error {
	embeddingVector := pgvector.NewVector(chunk.Embedding)

	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_code_chunk($1, $2, $3, $4, $5, $6, $7)`,
		chunk.ChunkID,
		chunk.RepoID,
		chunk.FilePath,
		chunk.StartLine,
		chunk.EndLine,
		chunk.Content,
		embeddingVector,
	)

	err := row.Scan(
		&chunk.ID,
		&chunk.ChunkID,
		&chunk.RepoID,
		&chunk.FilePath,
		&chunk.StartLine,
		&chunk.EndLine,
		&chunk.Content,
		&chunk.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectChunksBySimilarity performs cosine similarity search, optionally
// restricted to one repository namespace. An empty repoID searches all.
func (h *ChunksDBHandler) SelectChunksBySimilarity(embedding []float32, repoID string, topK int) ([]*model.CodeChunk, error) {
	embeddingVector := pgvector.NewVector(embedding)

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_similarity($1, $2, $3)`,
		embeddingVector,
		repoID,
		topK,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.CodeChunk
	for rows.Next() {
		chunk := &model.CodeChunk{}
		err := rows.Scan(
			&chunk.ID,
			&chunk.ChunkID,
			&chunk.RepoID,
			&chunk.FilePath,
			&chunk.StartLine,
			&chunk.EndLine,
			&chunk.Content,
			&chunk.CreatedAt,
			&chunk.Score,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// DeleteChunksByRepo deletes all chunks of one repository namespace
// and returns the number of deleted rows
func (h *ChunksDBHandler) DeleteChunksByRepo(repoID string) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRow(
		`SELECT delete_chunks_by_repo($1)`,
		repoID,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}

// CountChunks returns the total number of stored chunks
func (h *ChunksDBHandler) CountChunks() (int, error) {
	var count int
	err := h.db.Instance.QueryRow(`SELECT count_chunks()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}
