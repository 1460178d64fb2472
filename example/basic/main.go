package main

import (
	"context"
	"fmt"
	"log"

	"github.com/codectx/repograph"
	"github.com/codectx/repograph/core/index"
	"github.com/codectx/repograph/core/pipeline"
	"github.com/codectx/repograph/helper"
	"github.com/codectx/repograph/llm"
	"github.com/codectx/repograph/model"
)

const greeterSource = `"""Greeting service."""


class Greeter:
    """Builds greetings for display names."""

    def greet(self, name: str) -> str:
        """Return a greeting for name."""
        return format_name(name)


def format_name(name: str) -> str:
    """Normalize a display name."""
    return name.title()
`

const cliSource = `"""Command line entry point."""

from app.greeter import Greeter


def main() -> None:
    greeter = Greeter()
    print(greeter.greet("world"))
`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "repograph_test",
		Username: "repograph",
		Password: "repograph",
		Schema:   "public",
	}

	// Requires OPENAI_API_KEY
	reasoner, err := llm.NewOpenAIReasoner()
	if err != nil {
		log.Fatalf("Failed to create reasoner: %v", err)
	}

	// Local ONNX embedding model, all-MiniLM-L6-v2 with 384 dimensions
	embed, err := pipeline.DefaultEmbedder()
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}

	graph, err := repograph.NewRepoGraph(dbConfig, reasoner, embed, pipeline.EmbeddingDimension)
	if err != nil {
		log.Fatalf("Failed to create repograph: %v", err)
	}
	defer graph.Close()

	files := []index.SourceFile{
		{Path: "app/greeter.py", Content: []byte(greeterSource)},
		{Path: "app/cli.py", Content: []byte(cliSource)},
	}

	fmt.Println("Indexing repository...")
	stats, err := graph.IndexRepository(context.Background(), "demo", files)
	if err != nil {
		log.Fatalf("Failed to index repository: %v", err)
	}
	fmt.Printf("Run %s finished with status %s\n", stats.RunID, stats.Status)
	fmt.Printf("Entities: %d, Relationships: %d\n", stats.EntitiesCreated, stats.RelationshipsCreated)
	fmt.Printf("Graph totals: %d nodes, %d edges\n", stats.Graph.TotalNodes, stats.Graph.TotalEdges)

	query := "How are greetings built?"
	fmt.Printf("\nQuerying: %s\n", query)

	result, err := graph.Query(context.Background(), query, "demo", model.DefaultQueryConfig())
	if err != nil {
		log.Fatalf("Failed to query: %v", err)
	}
	fmt.Printf("Scenario: %s\n", result.Scenario)
	fmt.Printf("Answer: %s\n", result.Answer)
}
