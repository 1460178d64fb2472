package pipeline

import (
	"strings"

	"github.com/codectx/repograph/model"
)

// ChunkFile splits a file into fixed size overlapping line ranges.
// Lines are 1-indexed and ranges are inclusive. Chunk boundaries have no
// alignment with entity boundaries.
func ChunkFile(repoID string, filePath string, content string, config model.IndexConfig) []*model.CodeChunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	step := config.ChunkSize - config.ChunkOverlap
	if step < 1 {
		step = 1
	}

	var chunks []*model.CodeChunk
	sequence := 0

	for start := 0; start < len(lines); start += step {
		end := start + config.ChunkSize
		if end > len(lines) {
			end = len(lines)
		}

		chunks = append(chunks, &model.CodeChunk{
			ChunkID:   model.NewChunkID(repoID, filePath, sequence),
			RepoID:    repoID,
			FilePath:  filePath,
			StartLine: start + 1,
			EndLine:   end,
			Content:   strings.Join(lines[start:end], "\n"),
		})
		sequence++

		if end == len(lines) {
			break
		}
	}

	return chunks
}
