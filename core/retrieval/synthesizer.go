package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codectx/repograph/llm"
	"github.com/codectx/repograph/model"
)

const (
	// EmptyContextGuidance is returned for a context with no usable
	// material. The reasoning service is not called in that case.
	EmptyContextGuidance = "I could not find any relevant code context for this question. Try naming a specific class, function, or module from the repository."

	previewChars    = 300
	maxListedNames  = 5
	docstringChars  = 200
	synthesisSystem = "You are a software engineering tutor explaining a codebase.\n\n" +
		"You have access to:\n" +
		"1. CODE CHUNKS: Actual code from files (what happens)\n" +
		"2. CODE RELATIONSHIPS: Dependencies, imports, inheritance (how things connect)\n\n" +
		"Response Guidelines:\n" +
		"- Start with WHAT (what does this code do)\n" +
		"- Then explain WHERE (where is it used, what calls it)\n" +
		"- Reference file paths and line numbers\n\n" +
		"Only use the provided context. Do NOT add external knowledge."
)

// Synthesizer turns an assembled RetrievalContext into a natural-language
// answer. The formatting step is deterministic; only the final phrasing is
// delegated to the reasoning service, with the formatted context itself as
// fallback answer when that call fails.
type Synthesizer struct {
	reasoner llm.Reasoner
	logger   *slog.Logger
}

// NewSynthesizer creates a new answer synthesizer.
func NewSynthesizer(reasoner llm.Reasoner, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		reasoner: reasoner,
		logger:   logger,
	}
}

// Synthesize produces the final answer for a settled context. It never
// returns an error: an empty context yields the fixed guidance message and
// a failed reasoning call yields the raw formatted context.
func (s *Synthesizer) Synthesize(ctx context.Context, retrieved *model.RetrievalContext) string {
	if retrieved.IsEmpty() {
		return EmptyContextGuidance
	}

	formatted := FormatContext(retrieved)
	prompt := fmt.Sprintf("User Question:\n%s\n\nRetrieved Context:\n%s", retrieved.Query, formatted)

	answer, err := s.reasoner.Complete(ctx, synthesisSystem, prompt)
	if err != nil || answer == "" {
		s.logger.Warn("Answer synthesis failed, returning formatted context",
			slog.String("scenario", string(retrieved.Scenario)))
		return formatted
	}
	return answer
}

// FormatContext renders the context into one deterministic text block:
// ranked chunks with file, lines and relevance, entity relationship sets
// with counts, and prior conversation turns.
func FormatContext(retrieved *model.RetrievalContext) string {
	var builder strings.Builder

	if len(retrieved.Chunks) > 0 {
		builder.WriteString("CODE CHUNKS (Semantic Search - WHAT the code does):\n")
		for i, chunk := range retrieved.Chunks {
			fmt.Fprintf(&builder, "\n%d. File: %s\n", i+1, chunk.FilePath)
			fmt.Fprintf(&builder, "   Lines: %d-%d\n", chunk.StartLine, chunk.EndLine)
			fmt.Fprintf(&builder, "   Relevance: %.1f%%\n", chunk.Score*100)
			fmt.Fprintf(&builder, "   Preview: %s\n", chunk.Preview(previewChars))
		}
	}

	if len(retrieved.Entities) > 0 {
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString("CODE RELATIONSHIPS (Graph - WHERE/HOW code is used):\n")
		for i, entity := range retrieved.Entities {
			fmt.Fprintf(&builder, "\n%d. %s: %s\n", i+1, entity.Kind, entity.Name)
			if entity.NotFound {
				builder.WriteString("   Not found in graph, entity may have been removed\n")
				continue
			}
			formatRelations(&builder, entity)
			if entity.Entity != nil && entity.Entity.Docstring != "" {
				fmt.Fprintf(&builder, "   Documentation: %s\n", truncate(entity.Entity.Docstring, docstringChars))
			}
		}
	}

	if len(retrieved.Turns) > 0 {
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString("PRIOR CONVERSATION:\n")
		for _, turn := range retrieved.Turns {
			fmt.Fprintf(&builder, "\n%s: %s\n", turn.Role, truncate(turn.Content, previewChars))
		}
	}

	if builder.Len() == 0 {
		return "No context available from embeddings or graph."
	}
	return builder.String()
}

func formatRelations(builder *strings.Builder, entity *model.ResolvedEntity) {
	relations := entity.Relations
	if relations == nil {
		builder.WriteString("   No relationships found, entity may be isolated\n")
		return
	}

	if len(relations.Dependencies) > 0 {
		fmt.Fprintf(builder, "   Dependencies (%d): %s\n",
			len(relations.Dependencies), edgeTargets(relations.Dependencies))
	}
	if len(relations.Dependents) > 0 {
		fmt.Fprintf(builder, "   Used by (%d): %s\n",
			len(relations.Dependents), edgeSources(relations.Dependents))
	}
	if len(relations.Parents) > 0 {
		fmt.Fprintf(builder, "   Parents (%d): %s\n",
			len(relations.Parents), edgeSources(relations.Parents))
	}
	if len(relations.Dependencies) == 0 && len(relations.Dependents) == 0 && len(relations.Parents) == 0 {
		builder.WriteString("   No relationships found, entity may be isolated\n")
	}
}

func edgeTargets(edges []*model.GraphEdge) string {
	names := make([]string, 0, maxListedNames)
	for _, edge := range edges {
		names = append(names, edge.TargetName)
		if len(names) == maxListedNames {
			break
		}
	}
	return strings.Join(names, ", ")
}

func edgeSources(edges []*model.GraphEdge) string {
	names := make([]string, 0, maxListedNames)
	for _, edge := range edges {
		names = append(names, edge.SourceName)
		if len(names) == maxListedNames {
			break
		}
	}
	return strings.Join(names, ", ")
}

func truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[:n] + "..."
}
