package pipeline

import (
	"fmt"

	"github.com/codectx/repograph/helper"
	"github.com/knights-analytics/hugot"
)

// DefaultEmbeddingModel produces 384-dimensional sentence embeddings.
const (
	DefaultEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"
	EmbeddingDimension    = 384
)

// EmbedFunc generates one embedding vector per input text.
type EmbedFunc func(texts []string) ([][]float32, error)

// DefaultEmbedder creates an embedder using a real sentence transformer
// model, downloading it on first use.
func DefaultEmbedder() (EmbedFunc, error) {
	return NewEmbedder(DefaultEmbeddingModel, "")
}

// NewEmbedder creates an embedder for the given model. onnxFilePath
// selects a specific onnx file inside the model repository, empty uses
// the default.
func NewEmbedder(modelName string, onnxFilePath string) (EmbedFunc, error) {
	// Prepare model (download if needed)
	modelPath, err := helper.PrepareModel(modelName, onnxFilePath)
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	// Create sentence transformers pipeline configuration
	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return func(texts []string) ([][]float32, error) {
		if len(texts) == 0 {
			return nil, nil
		}

		result, err := sentencePipeline.RunPipeline(texts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}

		if len(result.Embeddings) != len(texts) {
			return nil, fmt.Errorf("embedding count mismatch: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
		}

		return result.Embeddings, nil
	}, nil
}
