package index

import (
	"fmt"
	"strings"
	"testing"

	"github.com/codectx/repograph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubEmbedFunc(batchSizes *[]int) func(texts []string) ([][]float32, error) {
	return func(texts []string) ([][]float32, error) {
		if batchSizes != nil {
			*batchSizes = append(*batchSizes, len(texts))
		}
		embeddings := make([][]float32, len(texts))
		for i := range texts {
			embeddings[i] = []float32{1, 0, 0}
		}
		return embeddings, nil
	}
}

func manyLines(count int) []byte {
	var builder strings.Builder
	for i := 0; i < count; i++ {
		fmt.Fprintf(&builder, "x = %d\n", i)
	}
	return []byte(builder.String())
}

func TestEmbedIndexerEmbedFiles(t *testing.T) {
	chunks := newFakeChunks()
	var batchSizes []int
	indexer := NewEmbedIndexer(chunks, stubEmbedFunc(&batchSizes), model.DefaultIndexConfig(), testLogger())

	files := []SourceFile{
		{Path: "pkg/a.py", Content: manyLines(1500)},
		{Path: "pkg/b.py", Content: manyLines(10)},
		{Path: "pkg/test_a.py", Content: manyLines(10)},
	}

	stored, failed, err := indexer.EmbedFiles("demo", files)
	require.NoError(t, err)

	t.Run("Chunks stored with embeddings", func(t *testing.T) {
		assert.Equal(t, 4, stored, "Expected three chunks of a.py and one of b.py")
		assert.Zero(t, failed)

		count, err := chunks.CountChunks()
		require.NoError(t, err)
		assert.Equal(t, 4, count)

		chunk, ok := chunks.byChunkID["demo#pkg/a.py#0"]
		require.True(t, ok)
		assert.Equal(t, []float32{1, 0, 0}, chunk.Embedding)
	})

	t.Run("Test files excluded", func(t *testing.T) {
		_, ok := chunks.byChunkID["demo#pkg/test_a.py#0"]
		assert.False(t, ok)
	})

	t.Run("Bounded embed batches", func(t *testing.T) {
		for _, size := range batchSizes {
			assert.LessOrEqual(t, size, model.DefaultIndexConfig().EmbedBatchSize)
		}
	})
}

func TestEmbedIndexerWriteFailureIsolation(t *testing.T) {
	chunks := newFakeChunks()
	chunks.failIDs["demo#pkg/a.py#1"] = true
	indexer := NewEmbedIndexer(chunks, stubEmbedFunc(nil), model.DefaultIndexConfig(), testLogger())

	files := []SourceFile{
		{Path: "pkg/a.py", Content: manyLines(1500)},
	}

	stored, failed, err := indexer.EmbedFiles("demo", files)
	require.NoError(t, err)
	assert.Equal(t, 2, stored)
	assert.Equal(t, 1, failed, "Expected a single chunk failure to be counted, not fatal")
}

func TestEmbedIndexerEmbeddingFailure(t *testing.T) {
	chunks := newFakeChunks()
	failing := func(texts []string) ([][]float32, error) {
		return nil, fmt.Errorf("model unavailable")
	}
	indexer := NewEmbedIndexer(chunks, failing, model.DefaultIndexConfig(), testLogger())

	files := []SourceFile{
		{Path: "pkg/a.py", Content: manyLines(10)},
	}

	_, _, err := indexer.EmbedFiles("demo", files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate embeddings")
}
