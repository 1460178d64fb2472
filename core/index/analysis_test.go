package index

import (
	"testing"

	"github.com/codectx/repograph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analysisEdge(source, target string, kind model.RelationshipKind) *model.GraphEdge {
	return &model.GraphEdge{
		SourceName: source,
		TargetName: target,
		Kind:       kind,
	}
}

func TestFindCircularDependencies(t *testing.T) {
	t.Run("Detects a cycle once", func(t *testing.T) {
		edges := []*model.GraphEdge{
			analysisEdge("alpha", "beta", model.RelationshipImports),
			analysisEdge("beta", "gamma", model.RelationshipImports),
			analysisEdge("gamma", "alpha", model.RelationshipInheritsFrom),
			analysisEdge("delta", "alpha", model.RelationshipImports),
		}

		cycles := FindCircularDependencies(edges)
		require.Len(t, cycles, 1)
		assert.Equal(t, []string{"alpha", "beta", "gamma", "alpha"}, cycles[0])
	})

	t.Run("Ignores non dependency edges", func(t *testing.T) {
		edges := []*model.GraphEdge{
			analysisEdge("alpha", "beta", model.RelationshipCalls),
			analysisEdge("beta", "alpha", model.RelationshipCalls),
		}

		assert.Empty(t, FindCircularDependencies(edges))
	})

	t.Run("Acyclic graph", func(t *testing.T) {
		edges := []*model.GraphEdge{
			analysisEdge("alpha", "beta", model.RelationshipImports),
			analysisEdge("alpha", "gamma", model.RelationshipImports),
			analysisEdge("beta", "gamma", model.RelationshipInheritsFrom),
		}

		assert.Empty(t, FindCircularDependencies(edges))
	})
}

func TestAnalyzeDependencyDepth(t *testing.T) {
	edges := []*model.GraphEdge{
		analysisEdge("main", "service", model.RelationshipImports),
		analysisEdge("service", "db", model.RelationshipCalls),
		analysisEdge("service", "cache", model.RelationshipCalls),
		analysisEdge("db", "config", model.RelationshipImports),
	}

	t.Run("Full chain from root", func(t *testing.T) {
		analysis := AnalyzeDependencyDepth(edges, "main")
		assert.Equal(t, "main", analysis.Entity)
		assert.Equal(t, 3, analysis.MaxDepth)
		assert.Equal(t, 1, analysis.DirectDependencies)
		assert.Equal(t, 4, analysis.TotalDependencies)
		assert.Equal(t, []string{"cache", "config", "db", "service"}, analysis.AllDependencies)
	})

	t.Run("Leaf entity", func(t *testing.T) {
		analysis := AnalyzeDependencyDepth(edges, "config")
		assert.Zero(t, analysis.MaxDepth)
		assert.Zero(t, analysis.TotalDependencies)
		assert.Empty(t, analysis.AllDependencies)
	})

	t.Run("Unknown entity", func(t *testing.T) {
		analysis := AnalyzeDependencyDepth(edges, "missing")
		assert.Zero(t, analysis.MaxDepth)
		assert.Zero(t, analysis.DirectDependencies)
	})
}
