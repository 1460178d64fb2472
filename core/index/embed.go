package index

import (
	"log/slog"

	"github.com/codectx/repograph/core/pipeline"
	"github.com/codectx/repograph/database"
	"github.com/codectx/repograph/helper"
	"github.com/codectx/repograph/model"
)

// EmbedIndexer splits files into chunks, embeds them in bounded batches
// and upserts each batch before the next starts.
type EmbedIndexer struct {
	chunks database.ChunksDBHandlerFunctions
	embed  pipeline.EmbedFunc
	config model.IndexConfig
	logger *slog.Logger
}

func NewEmbedIndexer(
	chunks database.ChunksDBHandlerFunctions,
	embed pipeline.EmbedFunc,
	config model.IndexConfig,
	logger *slog.Logger,
) *EmbedIndexer {
	return &EmbedIndexer{
		chunks: chunks,
		embed:  embed,
		config: config,
		logger: logger,
	}
}

// EmbedFiles chunks and embeds one repository's files into the vector
// store. It returns the number of stored chunks and the number of
// chunks that failed to store.
func (e *EmbedIndexer) EmbedFiles(repoID string, files []SourceFile) (int, int, error) {
	var chunks []*model.CodeChunk
	for _, file := range files {
		if pipeline.IsTestFile(file.Path, e.config.SkipPathSubstrings) {
			continue
		}
		chunks = append(chunks, pipeline.ChunkFile(repoID, file.Path, string(file.Content), e.config)...)
	}

	e.logger.Info("Embedding repository",
		slog.String("repo", repoID),
		slog.Int("chunks", len(chunks)))

	stored := 0
	failed := 0
	var pending []*model.CodeChunk

	flush := func() {
		for _, chunk := range pending {
			if err := e.chunks.UpsertChunk(chunk); err != nil {
				failed++
				e.logger.Warn("Failed to store chunk",
					slog.String("chunk", chunk.ChunkID),
					slog.Any("error", err))
				continue
			}
			stored++
		}
		pending = pending[:0]
	}

	for start := 0; start < len(chunks); start += e.config.EmbedBatchSize {
		end := start + e.config.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		embeddings, err := e.embed(texts)
		if err != nil {
			flush()
			return stored, failed, helper.NewError("generate embeddings", err)
		}

		for i, chunk := range batch {
			chunk.Embedding = embeddings[i]
		}
		pending = append(pending, batch...)

		if len(pending) >= e.config.UpsertBatchSize {
			flush()
		}
	}
	flush()

	e.logger.Info("Repository embedded",
		slog.String("repo", repoID),
		slog.Int("stored", stored),
		slog.Int("failed", failed))

	return stored, failed, nil
}
