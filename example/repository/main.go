// Command repository clones a real repository, indexes it and answers a
// few questions about it in one session.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/codectx/repograph"
	"github.com/codectx/repograph/core/index"
	"github.com/codectx/repograph/core/pipeline"
	"github.com/codectx/repograph/helper"
	"github.com/codectx/repograph/llm"
	"github.com/codectx/repograph/model"
	"github.com/codectx/repograph/source"
	"github.com/google/uuid"
)

const (
	repoURL  = "https://github.com/pallets/click"
	repoName = "click"
)

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "repograph_test",
		Username: "repograph",
		Password: "repograph",
		Schema:   "public",
	}

	reasoner, err := llm.NewOpenAIReasoner()
	if err != nil {
		log.Fatalf("Failed to create reasoner: %v", err)
	}

	embed, err := pipeline.DefaultEmbedder()
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}

	graph, err := repograph.NewRepoGraph(dbConfig, reasoner, embed, pipeline.EmbeddingDimension)
	if err != nil {
		log.Fatalf("Failed to create repograph: %v", err)
	}
	defer graph.Close()

	// Clone the repository and collect its Python sources
	logger := helper.NewDefaultLogger(os.Stdout, slog.LevelInfo)
	downloader, err := source.NewDownloader(os.TempDir()+"/repograph-repos", logger)
	if err != nil {
		log.Fatalf("Failed to create downloader: %v", err)
	}

	fmt.Printf("Cloning %s...\n", repoURL)
	root, err := downloader.Download(ctx, repoURL, repoName)
	if err != nil {
		log.Fatalf("Failed to clone repository: %v", err)
	}

	paths, err := source.ListSourceFiles(root)
	if err != nil {
		log.Fatalf("Failed to list source files: %v", err)
	}
	fmt.Printf("Found %d Python files\n", len(paths))

	files := make([]index.SourceFile, 0, len(paths))
	for _, path := range paths {
		content, err := source.Read(root, path)
		if err != nil {
			log.Printf("Skipping unreadable file %s: %v", path, err)
			continue
		}
		files = append(files, index.SourceFile{Path: path, Content: content})
	}

	fmt.Println("Indexing repository...")
	stats, err := graph.IndexRepository(ctx, repoName, files)
	if err != nil {
		log.Fatalf("Failed to index repository: %v", err)
	}
	fmt.Printf("Indexed %d files (%d skipped, %d parse errors)\n",
		stats.FilesProcessed, stats.FilesSkipped, stats.ParseErrors)
	fmt.Printf("Graph totals: %d nodes, %d edges\n", stats.Graph.TotalNodes, stats.Graph.TotalEdges)

	// One session so later questions can fall back to earlier answers
	sessionID := uuid.New()
	queryConfig := model.DefaultQueryConfig()
	queryConfig.SessionID = &sessionID

	questions := []string{
		"What does the Command class do?",
		"Which functions handle argument parsing?",
	}
	for _, question := range questions {
		fmt.Printf("\nQuerying: %s\n", question)
		result, err := graph.Query(ctx, question, repoName, queryConfig)
		if err != nil {
			log.Fatalf("Failed to query: %v", err)
		}
		fmt.Printf("Scenario: %s (%d entities, %d chunks)\n", result.Scenario, result.Entities, result.Chunks)
		fmt.Printf("Answer: %s\n", result.Answer)
	}
}
