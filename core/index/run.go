package index

import (
	"time"

	"github.com/codectx/repograph/core/pipeline"
	"github.com/codectx/repograph/model"
	"github.com/google/uuid"
)

// SourceFile is one file of a repository indexing run.
type SourceFile struct {
	Path    string
	Content []byte
}

// indexRun is the run-scoped state of one repository indexing run. It
// replaces ambient package state so concurrent runs cannot interfere.
type indexRun struct {
	stats       model.IndexStats
	extractions []*pipeline.FileExtraction

	// names seen as Function respectively Method among this run's
	// entities, used for edge label disambiguation
	functionNames map[string]bool
	methodNames   map[string]bool

	// package paths derived from the run's module paths
	packages map[string]bool
}

func newIndexRun(repoID string) *indexRun {
	return &indexRun{
		stats: model.IndexStats{
			RunID:     uuid.New(),
			RepoID:    repoID,
			Status:    model.RunStatusPending,
			StartedAt: time.Now(),
		},
		functionNames: map[string]bool{},
		methodNames:   map[string]bool{},
		packages:      map[string]bool{},
	}
}

func (r *indexRun) addExtraction(extraction *pipeline.FileExtraction) {
	r.extractions = append(r.extractions, extraction)

	for _, entity := range extraction.Entities {
		switch entity.Kind {
		case model.EntityKindFunction:
			r.functionNames[entity.Name] = true
		case model.EntityKindMethod:
			r.methodNames[entity.Name] = true
		}

		if entity.QualifiedModule == "" {
			continue
		}
		r.packages[entity.QualifiedModule] = true
		for _, prefix := range pipeline.PackagePrefixes(entity.QualifiedModule) {
			r.packages[prefix] = true
		}
	}
}

// entityKindOf resolves the node label of a callable edge endpoint: a
// name seen among this run's Function entities stays Function, anything
// else is labeled Method. A two-way heuristic, not authoritative.
func (r *indexRun) entityKindOf(name string, kind model.EntityKind) model.EntityKind {
	if kind != model.EntityKindFunction && kind != model.EntityKindMethod {
		return kind
	}
	if r.functionNames[name] {
		return model.EntityKindFunction
	}
	return model.EntityKindMethod
}

func (r *indexRun) finish(status model.RunStatus) *model.IndexStats {
	r.stats.Status = status
	r.stats.FinishedAt = time.Now()
	return &r.stats
}
